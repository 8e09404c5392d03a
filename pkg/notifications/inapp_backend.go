package notifications

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/eventkit/pkg/broadcast"
	"github.com/dmitrymomot/eventkit/pkg/cache"
	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
)

// InAppBackend pushes messages to live subscribers of each target user.
// Targets of an in-app channel are user ids.
type InAppBackend struct {
	users      *cache.LRUCache[string, *broadcast.MemoryBroadcaster[Message]]
	bufferSize int
	maxUsers   int
	logger     *slog.Logger
}

// InAppOption configures an InAppBackend.
type InAppOption func(*InAppBackend)

// WithInAppLogger sets the logger for the InAppBackend.
func WithInAppLogger(l *slog.Logger) InAppOption {
	return func(b *InAppBackend) {
		b.logger = l
	}
}

// WithMaxUsers limits how many per-user broadcasters are kept. The least
// recently used one is closed when the limit is reached.
func WithMaxUsers(limit int) InAppOption {
	return func(b *InAppBackend) {
		if limit > 0 {
			b.maxUsers = limit
		}
	}
}

// NewInAppBackend creates an in-app backend whose subscribers buffer up to bufferSize messages.
func NewInAppBackend(bufferSize int, opts ...InAppOption) *InAppBackend {
	b := &InAppBackend{
		bufferSize: bufferSize,
		maxUsers:   10000,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.users = cache.NewLRUCache[string, *broadcast.MemoryBroadcaster[Message]](b.maxUsers)
	b.users.SetEvictCallback(func(userID string, bc *broadcast.MemoryBroadcaster[Message]) {
		if err := bc.Close(); err != nil {
			b.logger.LogAttrs(context.Background(), slog.LevelError, "failed to close evicted broadcaster",
				logger.UserID(userID),
				logger.Error(err),
			)
		}
	})
	return b
}

// Send implements Backend. A user without live subscribers still counts as
// delivered: the message is simply not buffered for them.
func (b *InAppBackend) Send(ctx context.Context, ch event.Channel, msg Message) error {
	return sendEach(ctx, ch, func(ctx context.Context, userID string) error {
		return b.broadcaster(userID).Broadcast(ctx, broadcast.Message[Message]{Data: msg})
	})
}

// Subscribe returns a subscriber for userID's messages. Transport layers
// (SSE, websockets) read from it.
func (b *InAppBackend) Subscribe(ctx context.Context, userID string) broadcast.Subscriber[Message] {
	return b.broadcaster(userID).Subscribe(ctx)
}

// Close closes every user broadcaster.
func (b *InAppBackend) Close() error {
	b.users.Clear()
	return nil
}

func (b *InAppBackend) broadcaster(userID string) *broadcast.MemoryBroadcaster[Message] {
	return b.users.GetOrCreate(userID, func() *broadcast.MemoryBroadcaster[Message] {
		return broadcast.NewMemoryBroadcaster[Message](b.bufferSize)
	})
}
