package event

import (
	"slices"
	"time"
)

// Event is a time-bound happening that subscribers are notified about.
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// IsCancelled reports whether the event was cancelled.
func (e Event) IsCancelled() bool {
	return e.CancelledAt != nil
}

// HasEnded reports whether the event has an end time that is not after now.
func (e Event) HasEnded(now time.Time) bool {
	return e.EndsAt != nil && !e.EndsAt.After(now)
}

// SelectorKind tells how a selector resolves to channels.
type SelectorKind string

const (
	SelectorChannel SelectorKind = "channel"
	SelectorTag     SelectorKind = "tag"
)

// Selector resolves to zero or more channels of a subscription owner,
// either by explicit channel id or by tag.
type Selector struct {
	Kind  SelectorKind `json:"kind"`
	Value string       `json:"value"`
}

// ChannelSelector targets one channel by id.
func ChannelSelector(channelID string) Selector {
	return Selector{Kind: SelectorChannel, Value: channelID}
}

// TagSelector targets every active channel carrying the tag.
func TagSelector(tag string) Selector {
	return Selector{Kind: SelectorTag, Value: tag}
}

// Valid reports whether the selector has a known kind and a value.
func (s Selector) Valid() bool {
	return (s.Kind == SelectorChannel || s.Kind == SelectorTag) && s.Value != ""
}

// Subscription links one recipient to one event.
type Subscription struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	OwnerID   string     `json:"owner_id"`
	Selectors []Selector `json:"selectors"`
	Offsets   []int64    `json:"offsets"` // seconds before start
	Active    bool       `json:"active"`
}

// ChannelKind identifies the delivery backend for a channel.
type ChannelKind string

const (
	ChannelEmail   ChannelKind = "email"
	ChannelWebhook ChannelKind = "webhook"
	ChannelInApp   ChannelKind = "inapp"
)

// Channel is a concrete delivery destination owned by a user.
// Targets hold email addresses, webhook URLs or in-app user ids depending on Kind.
type Channel struct {
	ID      string      `json:"id"`
	OwnerID string      `json:"owner_id"`
	Kind    ChannelKind `json:"kind"`
	Targets []string    `json:"targets"`
	Tags    []string    `json:"tags,omitempty"`
	Secret  string      `json:"-"`
	Active  bool        `json:"active"`
}

// HasTag reports whether the channel carries the tag.
func (c Channel) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// NormalizeOffsets returns the offsets a subscription should be stored with.
// An empty list falls back to defaults; negative values and duplicates are dropped,
// order of first appearance is kept.
func NormalizeOffsets(offsets, defaults []int64) []int64 {
	src := offsets
	if len(src) == 0 {
		src = defaults
	}

	out := make([]int64, 0, len(src))
	for _, o := range src {
		if o < 0 || slices.Contains(out, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}
