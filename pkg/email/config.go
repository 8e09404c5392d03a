package email

// Config holds email service configuration. Without Postmark tokens the
// sender falls back to writing messages into DevDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@eventkit.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@eventkit.local"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// NewFromConfig returns a Postmark sender when both tokens are set and a
// DevSender otherwise.
func NewFromConfig(cfg Config) (EmailSender, error) {
	if cfg.PostmarkServerToken == "" && cfg.PostmarkAccountToken == "" {
		return NewDevSender(cfg.DevDir), nil
	}
	return NewPostmarkClient(cfg)
}
