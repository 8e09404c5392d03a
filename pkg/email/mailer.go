package email

import (
	"context"

	"github.com/dmitrymomot/eventkit/pkg/validator"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the recipient address and that the message has a subject and a body.
func (p SendEmailParams) Validate() error {
	return validator.Apply(
		validator.RequiredString("send_to", p.SendTo),
		validator.ValidEmail("send_to", p.SendTo),
		validator.RequiredString("subject", p.Subject),
		validator.MaxLenString("subject", p.Subject, 998),
		validator.Rule{
			Check: func() bool { return p.BodyHTML != "" || p.BodyText != "" },
			Error: validator.ValidationError{
				Field:          "body",
				Message:        "html or text body is required",
				TranslationKey: "validation.required",
			},
		},
	)
}
