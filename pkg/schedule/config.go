package schedule

import "time"

// Config holds the schedule registry settings.
type Config struct {
	Queue          string        `env:"SCHEDULE_QUEUE" envDefault:"reminders"`
	MaxAttempts    int           `env:"SCHEDULE_MAX_ATTEMPTS" envDefault:"2"`
	InitialBackoff time.Duration `env:"SCHEDULE_INITIAL_BACKOFF" envDefault:"2s"`
	MaxBackoff     time.Duration `env:"SCHEDULE_MAX_BACKOFF" envDefault:"30s"`
	Timeout        time.Duration `env:"SCHEDULE_TIMEOUT" envDefault:"10s"`
	TaskRetries    int8          `env:"SCHEDULE_TASK_RETRIES" envDefault:"3"`
}
