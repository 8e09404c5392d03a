// Package notifications delivers event messages to subscribers.
//
// A Dispatcher resolves each subscription's selectors into a deduplicated
// set of channels and sends to every channel concurrently through a Backend,
// retrying each channel independently. The outcome is a Report with one
// entry per subscription: delivered when any channel succeeded, failed when
// none did, no_targets when nothing resolved. Only a missing event is
// returned as an error.
//
// Backends exist for email (pkg/email), signed webhooks (pkg/webhook) and
// in-app streams (pkg/broadcast); MultiBackend routes by channel kind.
// A backend that reaches some but not all targets of a channel returns a
// *PartialError, which counts as a delivered channel.
//
//	backend := notifications.NewMultiBackend().
//		Register(event.ChannelEmail, notifications.NewEmailBackend(mailer)).
//		Register(event.ChannelWebhook, notifications.NewWebhookBackend(webhook.NewSender(), breakers))
//	d := notifications.NewDispatcher(repo, backend)
//	report, err := d.Dispatch(ctx, eventID, notifications.Message{Title: "Moved", Body: "..."})
package notifications
