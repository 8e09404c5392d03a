package webhook

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// DeliveryResult contains information about a webhook delivery attempt
type DeliveryResult struct {
	Success    bool
	StatusCode int
	Attempt    int
	Duration   time.Duration
	Error      error
}

// DeliveryHook is called after each delivery attempt
type DeliveryHook func(result DeliveryResult)

type sendOptions struct {
	timeout         time.Duration
	headers         map[string]string
	httpClient      *http.Client
	policy          retry.Policy
	signatureSecret string
	circuitBreaker  *CircuitBreaker
	onDelivery      DeliveryHook
}

func defaultSendOptions() *sendOptions {
	return &sendOptions{
		timeout: 10 * time.Second,
		headers: make(map[string]string),
		policy: retry.Policy{
			MaxAttempts: 4,
			Backoff:     retry.DefaultBackoffStrategy(),
		},
	}
}

// SendOption is a functional option for configuring webhook sends
type SendOption func(*sendOptions)

// WithTimeout sets the per-request timeout. Default is 10 seconds.
func WithTimeout(timeout time.Duration) SendOption {
	return func(o *sendOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHeader adds a custom header to the webhook request.
func WithHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		if key != "" && value != "" {
			o.headers[key] = value
		}
	}
}

// WithRetryPolicy replaces the retry policy. Default is 4 attempts with
// exponential backoff and jitter.
func WithRetryPolicy(p retry.Policy) SendOption {
	return func(o *sendOptions) {
		if p.MaxAttempts > 0 {
			o.policy = p
		}
	}
}

// WithNoRetry makes Send perform a single attempt.
func WithNoRetry() SendOption {
	return func(o *sendOptions) {
		o.policy = retry.Policy{MaxAttempts: 1}
	}
}

// WithSignature enables HMAC-SHA256 request signing with the given secret.
func WithSignature(secret string) SendOption {
	return func(o *sendOptions) {
		o.signatureSecret = secret
	}
}

// WithHTTPClient sets a custom HTTP client for the request.
func WithHTTPClient(client *http.Client) SendOption {
	return func(o *sendOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithCircuitBreaker enables circuit breaker protection for the endpoint.
// Reuse the same instance per endpoint to track failure state across requests.
func WithCircuitBreaker(cb *CircuitBreaker) SendOption {
	return func(o *sendOptions) {
		o.circuitBreaker = cb
	}
}

// WithOnDelivery sets a callback that's invoked after each delivery attempt.
func WithOnDelivery(hook DeliveryHook) SendOption {
	return func(o *sendOptions) {
		o.onDelivery = hook
	}
}
