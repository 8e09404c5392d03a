package lifecycle

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/validator"
)

// SignalKind names an inbound coordinator signal.
type SignalKind string

const (
	SignalParticipantAdded   SignalKind = "participant_added"
	SignalParticipantRemoved SignalKind = "participant_removed"
	SignalEventUpdated       SignalKind = "event_updated"
	SignalManualNotification SignalKind = "manual_notification"
	SignalCancelEvent        SignalKind = "cancel_event"
)

var signalKinds = []string{
	string(SignalParticipantAdded),
	string(SignalParticipantRemoved),
	string(SignalEventUpdated),
	string(SignalManualNotification),
	string(SignalCancelEvent),
}

// Signal is one message for a coordinator. Only the fields of its kind are set.
type Signal struct {
	Kind SignalKind `json:"kind"`

	SubscriptionID string `json:"subscription_id,omitempty"`
	OwnerID        string `json:"owner_id,omitempty"`

	Patch *event.Patch `json:"patch,omitempty"`

	Title           string              `json:"title,omitempty"`
	Body            string              `json:"body,omitempty"`
	Level           notifications.Level `json:"level,omitempty"`
	SubscriptionIDs []string            `json:"subscription_ids,omitempty"`
}

// ParticipantAdded tells the coordinator a subscription was created.
func ParticipantAdded(subscriptionID, ownerID string) Signal {
	return Signal{Kind: SignalParticipantAdded, SubscriptionID: subscriptionID, OwnerID: ownerID}
}

// ParticipantRemoved tells the coordinator a subscription was removed.
func ParticipantRemoved(subscriptionID string) Signal {
	return Signal{Kind: SignalParticipantRemoved, SubscriptionID: subscriptionID}
}

// EventUpdated carries changed event attributes.
func EventUpdated(patch event.Patch) Signal {
	return Signal{Kind: SignalEventUpdated, Patch: &patch}
}

// ManualNotification asks for an immediate message, to subscriptionIDs or to everyone.
func ManualNotification(title, body string, level notifications.Level, subscriptionIDs ...string) Signal {
	return Signal{
		Kind:            SignalManualNotification,
		Title:           title,
		Body:            body,
		Level:           level,
		SubscriptionIDs: subscriptionIDs,
	}
}

// CancelEvent cancels the event and terminates its coordinator.
func CancelEvent() Signal {
	return Signal{Kind: SignalCancelEvent}
}

// Validate checks the fields required by the signal kind.
func (s Signal) Validate() error {
	rules := []validator.Rule{
		validator.InListString("kind", string(s.Kind), signalKinds),
	}

	switch s.Kind {
	case SignalParticipantAdded:
		rules = append(rules,
			validator.RequiredString("subscription_id", s.SubscriptionID),
			validator.RequiredString("owner_id", s.OwnerID),
		)
	case SignalParticipantRemoved:
		rules = append(rules, validator.RequiredString("subscription_id", s.SubscriptionID))
	case SignalEventUpdated:
		rules = append(rules, validator.Rule{
			Check: func() bool { return s.Patch != nil && !s.Patch.IsEmpty() },
			Error: validator.ValidationError{
				Field:          "patch",
				Message:        "at least one attribute must change",
				TranslationKey: "validation.required",
			},
		})
		if s.Patch != nil && s.Patch.Name != nil {
			rules = append(rules, validator.RequiredString("patch.name", *s.Patch.Name))
		}
		if s.Patch != nil && s.Patch.StartsAt != nil && s.Patch.EndsAt != nil {
			rules = append(rules, validator.DateAfter("patch.ends_at", *s.Patch.EndsAt, *s.Patch.StartsAt))
		}
	case SignalManualNotification:
		rules = append(rules,
			validator.RequiredString("title", s.Title),
			validator.MaxLenString("title", s.Title, 200),
			validator.RequiredString("body", s.Body),
			validator.MaxLenString("body", s.Body, 5000),
			validator.InListString("level", string(s.Level), notifications.Levels),
			validator.MaxLenSlice("subscription_ids", s.SubscriptionIDs, 1000),
		)
	}

	if err := validator.Apply(rules...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, err)
	}
	return nil
}

// Envelope is a signal as stored in the inbox.
type Envelope struct {
	ID         string    `json:"id"`
	Signal     Signal    `json:"signal"`
	ReceivedAt time.Time `json:"received_at"`
}
