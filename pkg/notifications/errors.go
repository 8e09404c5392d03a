package notifications

import "errors"

var (
	// ErrDeliveryFailed is returned by backends when no target of a channel received the message.
	ErrDeliveryFailed = errors.New("notifications: delivery failed")

	// ErrUnsupportedChannel is returned when no backend handles the channel kind.
	ErrUnsupportedChannel = errors.New("notifications: unsupported channel kind")

	// ErrNoTargets is returned by backends for a channel without targets.
	ErrNoTargets = errors.New("notifications: channel has no targets")
)
