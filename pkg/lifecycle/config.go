package lifecycle

import "time"

// Config configures the coordinator registry.
type Config struct {
	// Broadcasts before the coordinator history is compacted.
	CompactionThreshold int `env:"LIFECYCLE_COMPACTION_THRESHOLD" envDefault:"100"`
	// Processed signals kept in the state history between compactions.
	HistoryLimit int `env:"LIFECYCLE_HISTORY_LIMIT" envDefault:"50"`
	// How long after the start an event without an end time is considered over.
	DefaultDuration time.Duration `env:"LIFECYCLE_DEFAULT_DURATION" envDefault:"1h"`

	LeaseTTL        time.Duration `env:"LIFECYCLE_LEASE_TTL" envDefault:"30s"`
	RecoverInterval time.Duration `env:"LIFECYCLE_RECOVER_INTERVAL" envDefault:"1m"`
	CleanupTimeout  time.Duration `env:"LIFECYCLE_CLEANUP_TIMEOUT" envDefault:"30s"`

	// Attempts for reading the event, its subscriptions and the stored state
	// while a coordinator starts; the delay doubles from LookupBackoff.
	LookupAttempts int           `env:"LIFECYCLE_LOOKUP_ATTEMPTS" envDefault:"3"`
	LookupBackoff  time.Duration `env:"LIFECYCLE_LOOKUP_BACKOFF" envDefault:"500ms"`

	// Manual notifications allowed per event: a burst of ManualBurst refilled
	// by one token every ManualRefill.
	ManualBurst  int           `env:"LIFECYCLE_MANUAL_BURST" envDefault:"5"`
	ManualRefill time.Duration `env:"LIFECYCLE_MANUAL_REFILL" envDefault:"1m"`
}

// DefaultConfig returns the values the env defaults describe.
func DefaultConfig() Config {
	return Config{
		CompactionThreshold: 100,
		HistoryLimit:        50,
		DefaultDuration:     time.Hour,
		LeaseTTL:            30 * time.Second,
		RecoverInterval:     time.Minute,
		CleanupTimeout:      30 * time.Second,
		LookupAttempts:      3,
		LookupBackoff:       500 * time.Millisecond,
		ManualBurst:         5,
		ManualRefill:        time.Minute,
	}
}
