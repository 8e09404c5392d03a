package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// Backend delivers a message to one resolved channel. A nil error or a
// *PartialError means the channel counts as delivered.
type Backend interface {
	Send(ctx context.Context, ch event.Channel, msg Message) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, ch event.Channel, msg Message) error

// Send implements Backend.
func (f BackendFunc) Send(ctx context.Context, ch event.Channel, msg Message) error {
	return f(ctx, ch, msg)
}

// PartialError reports a multi-target channel where some targets failed.
type PartialError struct {
	Delivered []string
	Failed    map[string]error
}

func (e *PartialError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for target := range e.Failed {
		failed = append(failed, target)
	}
	return fmt.Sprintf("partial delivery: %d delivered, failed: %s", len(e.Delivered), strings.Join(failed, ", "))
}

// MultiBackend routes each channel to the backend registered for its kind.
type MultiBackend struct {
	backends map[event.ChannelKind]Backend
}

// NewMultiBackend creates an empty router; add backends with Register.
func NewMultiBackend() *MultiBackend {
	return &MultiBackend{backends: make(map[event.ChannelKind]Backend)}
}

// Register sets the backend for a channel kind and returns the router for chaining.
func (m *MultiBackend) Register(kind event.ChannelKind, b Backend) *MultiBackend {
	m.backends[kind] = b
	return m
}

// Send implements Backend.
func (m *MultiBackend) Send(ctx context.Context, ch event.Channel, msg Message) error {
	b, ok := m.backends[ch.Kind]
	if !ok {
		return retry.Permanent(fmt.Errorf("%w: %q", ErrUnsupportedChannel, ch.Kind))
	}
	return b.Send(ctx, ch, msg)
}

// NoOpBackend accepts every message. Useful when a kind is disabled.
type NoOpBackend struct{}

// Send implements Backend.
func (NoOpBackend) Send(context.Context, event.Channel, Message) error { return nil }

// sendEach calls send for every target of ch and folds the outcome: nil when
// all succeed, *PartialError when some do, ErrDeliveryFailed otherwise. When
// every failure is permanent the combined error is permanent as well.
func sendEach(ctx context.Context, ch event.Channel, send func(ctx context.Context, target string) error) error {
	if len(ch.Targets) == 0 {
		return retry.Permanent(fmt.Errorf("%w: %s", ErrNoTargets, ch.ID))
	}

	var delivered []string
	failed := make(map[string]error)
	permanent := true
	for _, target := range ch.Targets {
		if err := send(ctx, target); err != nil {
			failed[target] = err
			permanent = permanent && retry.IsPermanent(err)
			continue
		}
		delivered = append(delivered, target)
	}

	switch {
	case len(failed) == 0:
		return nil
	case len(delivered) > 0:
		return &PartialError{Delivered: delivered, Failed: failed}
	}

	errs := make([]error, 0, len(failed)+1)
	errs = append(errs, ErrDeliveryFailed)
	for _, target := range ch.Targets {
		errs = append(errs, fmt.Errorf("%s: %w", target, failed[target]))
	}
	err := errors.Join(errs...)
	if permanent {
		return retry.Permanent(err)
	}
	return err
}
