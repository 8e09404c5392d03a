package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// namespace scopes the name-based task IDs of reminder timers.
var namespace = uuid.MustParse("8f0c4a57-3b1e-4d8a-9a6f-2c7e5b1d9e40")

// Key identifies one reminder timer.
type Key struct {
	EventID        string
	SubscriptionID string
	Offset         int64 // seconds before start
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.EventID, k.SubscriptionID, k.Offset)
}

// TaskID is the queue task ID for the key. Equal keys always map to the same
// ID and distinct keys never share a name: ids are length-prefixed because
// they may contain any character.
func (k Key) TaskID() uuid.UUID {
	name := fmt.Sprintf("%d:%s%d:%s%d", len(k.EventID), k.EventID, len(k.SubscriptionID), k.SubscriptionID, k.Offset)
	return uuid.NewSHA1(namespace, []byte(name))
}

// FireAt is the moment the timer should fire for an event starting at startsAt.
func (k Key) FireAt(startsAt time.Time) time.Time {
	return startsAt.Add(-time.Duration(k.Offset) * time.Second)
}

// Fire is the payload delivered to the reminder handler when a timer expires.
type Fire struct {
	EventID        string `json:"event_id"`
	SubscriptionID string `json:"subscription_id"`
	OffsetSeconds  int64  `json:"offset_seconds"`
}

// Key returns the timer key the payload was created for.
func (f Fire) Key() Key {
	return Key{EventID: f.EventID, SubscriptionID: f.SubscriptionID, Offset: f.OffsetSeconds}
}
