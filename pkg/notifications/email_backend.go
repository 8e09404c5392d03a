package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/dmitrymomot/eventkit/pkg/email"
	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/retry"
	"github.com/dmitrymomot/eventkit/pkg/validator"
)

var emailTemplate = template.Must(template.New("notification").Parse(
	`<!DOCTYPE html><html><body><h2>{{.Title}}</h2><p>{{.Body}}</p></body></html>`,
))

// EmailBackend delivers messages to every address of an email channel.
type EmailBackend struct {
	sender email.EmailSender
	tag    string
}

// NewEmailBackend wraps an email sender.
func NewEmailBackend(sender email.EmailSender) *EmailBackend {
	return &EmailBackend{sender: sender, tag: "event-notification"}
}

// Send implements Backend.
func (b *EmailBackend) Send(ctx context.Context, ch event.Channel, msg Message) error {
	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, msg); err != nil {
		return retry.Permanent(fmt.Errorf("render email: %w", err))
	}

	subject := msg.Title
	if msg.Level == LevelCritical {
		subject = "[Urgent] " + subject
	}

	return sendEach(ctx, ch, func(ctx context.Context, to string) error {
		params := email.SendEmailParams{
			SendTo:   to,
			Subject:  subject,
			BodyHTML: html.String(),
			BodyText: msg.Body,
			Tag:      b.tag,
		}
		if err := params.Validate(); err != nil {
			return retry.Permanent(err)
		}
		if err := b.sender.SendEmail(ctx, params); err != nil {
			if validator.IsValidationError(err) {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	})
}
