package event

import "context"

// Repository is the read contract the coordinator, the reminder task and the
// dispatcher need from persistence.
type Repository interface {
	// EventExists reports whether the event is present in the store.
	EventExists(ctx context.Context, eventID string) (bool, error)

	// GetEvent returns the current persisted event or ErrNotFound.
	GetEvent(ctx context.Context, eventID string) (Event, error)

	// ListActiveSubscriptions returns active subscriptions of the event.
	ListActiveSubscriptions(ctx context.Context, eventID string) ([]Subscription, error)

	// GetSubscription returns one subscription or ErrNotFound.
	GetSubscription(ctx context.Context, subscriptionID string) (Subscription, error)

	// ResolveChannels returns the owner's active channels matched by the selector.
	ResolveChannels(ctx context.Context, ownerID string, selector Selector) ([]Channel, error)
}
