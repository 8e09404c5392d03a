// Package webhook delivers JSON payloads over HTTP POST with retries,
// HMAC-SHA256 signing and circuit breaking.
//
//	sender := webhook.NewSender()
//	err := sender.Send(ctx, "https://example.com/hooks/events", payload,
//		webhook.WithSignature(secret),
//		webhook.WithHeader("X-Event-ID", eventID),
//		webhook.WithCircuitBreaker(breakers.For(channelID)),
//	)
//
// Retries follow a retry.Policy (WithRetryPolicy, WithNoRetry). Responses
// with 4xx status codes other than 408, 425 and 429, as well as invalid URLs,
// are permanent failures: the returned error is marked with retry.Permanent
// so outer retry loops stop too.
//
// When signing is enabled the request carries:
//
//	X-Webhook-Signature: hex HMAC-SHA256(secret, "<timestamp>.<payload>")
//	X-Webhook-Timestamp: unix seconds
//	X-Webhook-ID:        unique delivery id
//
// Receivers verify with ExtractSignatureHeaders and VerifySignature.
package webhook
