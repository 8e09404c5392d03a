package lifecycle

import (
	"slices"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/statemachine"
)

// Phase is the coordinator position in its lifecycle.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseActive      Phase = "active"
	PhaseTerminating Phase = "terminating"
	PhaseDone        Phase = "done"
)

// Name implements statemachine.State.
func (p Phase) Name() string { return string(p) }

// Outcome tells why a coordinator terminated.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

const (
	transitionActivate  = statemachine.StringEvent("activate")
	transitionTerminate = statemachine.StringEvent("terminate")
	transitionFinish    = statemachine.StringEvent("finish")
)

// HistoryEntry records one processed signal.
type HistoryEntry struct {
	SignalID    string     `json:"signal_id"`
	Kind        SignalKind `json:"kind"`
	ProcessedAt time.Time  `json:"processed_at"`
	Error       string     `json:"error,omitempty"`
}

// State is the persisted runtime state of one coordinator.
type State struct {
	EventID           string         `json:"event_id"`
	Event             event.Event    `json:"event"`
	Phase             Phase          `json:"phase"`
	Outcome           Outcome        `json:"outcome,omitempty"`
	Cancelled         bool           `json:"cancelled"`
	NotificationCount int            `json:"notification_count"`
	Generation        int            `json:"generation"`
	Cursor            string         `json:"cursor,omitempty"` // last processed inbox entry
	History           []HistoryEntry `json:"history,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out of the coordinator goroutine.
func (s State) Clone() State {
	s.History = slices.Clone(s.History)
	if s.Event.EndsAt != nil {
		endsAt := *s.Event.EndsAt
		s.Event.EndsAt = &endsAt
	}
	if s.Event.CancelledAt != nil {
		cancelledAt := *s.Event.CancelledAt
		s.Event.CancelledAt = &cancelledAt
	}
	return s
}

// record appends a history entry, keeping at most limit entries.
func (s *State) record(entry HistoryEntry, limit int) {
	s.History = append(s.History, entry)
	if limit > 0 && len(s.History) > limit {
		s.History = slices.Delete(s.History, 0, len(s.History)-limit)
	}
}

// compact starts a new generation: the notification counter and the
// history are reset, identity and event attributes stay.
func (s *State) compact() {
	s.History = nil
	s.NotificationCount = 0
	s.Generation++
}

// endAt is when the coordinator should stop on its own.
func (s State) endAt(defaultDuration time.Duration) time.Time {
	if s.Event.EndsAt != nil {
		return *s.Event.EndsAt
	}
	return s.Event.StartsAt.Add(defaultDuration)
}
