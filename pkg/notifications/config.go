package notifications

import "time"

// Config configures the dispatcher and its backends.
type Config struct {
	MaxConcurrency int           `env:"NOTIFY_MAX_CONCURRENCY" envDefault:"16"`
	MaxAttempts    int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	InitialBackoff time.Duration `env:"NOTIFY_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff     time.Duration `env:"NOTIFY_MAX_BACKOFF" envDefault:"10s"`
	AttemptTimeout time.Duration `env:"NOTIFY_ATTEMPT_TIMEOUT" envDefault:"15s"`

	InAppBufferSize int `env:"NOTIFY_INAPP_BUFFER_SIZE" envDefault:"32"`
	InAppMaxUsers   int `env:"NOTIFY_INAPP_MAX_USERS" envDefault:"10000"`

	WebhookFailureThreshold int           `env:"NOTIFY_WEBHOOK_FAILURE_THRESHOLD" envDefault:"5"`
	WebhookSuccessThreshold int           `env:"NOTIFY_WEBHOOK_SUCCESS_THRESHOLD" envDefault:"2"`
	WebhookRecoveryTimeout  time.Duration `env:"NOTIFY_WEBHOOK_RECOVERY_TIMEOUT" envDefault:"30s"`
}
