package notifications

import (
	"context"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/retry"
	"github.com/dmitrymomot/eventkit/pkg/validator"
	"github.com/dmitrymomot/eventkit/pkg/webhook"
)

// WebhookPayload is the JSON body posted to webhook channels.
type WebhookPayload struct {
	ChannelID string `json:"channel_id"`
	Message
}

// WebhookBackend posts messages to every URL of a webhook channel. Each
// URL has its own circuit breaker. Retries are left to the dispatcher.
type WebhookBackend struct {
	sender   *webhook.Sender
	breakers *webhook.Breakers
}

// NewWebhookBackend creates a webhook backend. A nil breakers set disables
// circuit breaking.
func NewWebhookBackend(sender *webhook.Sender, breakers *webhook.Breakers) *WebhookBackend {
	if sender == nil {
		sender = webhook.NewSender()
	}
	return &WebhookBackend{sender: sender, breakers: breakers}
}

// Send implements Backend.
func (b *WebhookBackend) Send(ctx context.Context, ch event.Channel, msg Message) error {
	payload := WebhookPayload{ChannelID: ch.ID, Message: msg}

	return sendEach(ctx, ch, func(ctx context.Context, url string) error {
		if err := validator.Apply(validator.ValidURL("url", url)); err != nil {
			return retry.Permanent(err)
		}
		opts := []webhook.SendOption{webhook.WithNoRetry()}
		if ch.Secret != "" {
			opts = append(opts, webhook.WithSignature(ch.Secret))
		}
		if b.breakers != nil {
			opts = append(opts, webhook.WithCircuitBreaker(b.breakers.For(ch.ID+"|"+url)))
		}
		return b.sender.Send(ctx, url, payload, opts...)
	})
}
