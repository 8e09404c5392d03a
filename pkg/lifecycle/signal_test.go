package lifecycle_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/lifecycle"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/validator"
)

func ptr[T any](v T) *T { return &v }

func TestSignal_Validate(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		signal  lifecycle.Signal
		wantErr string // invalid field, empty when valid
	}{
		{name: "participant added", signal: lifecycle.ParticipantAdded("s1", "u1")},
		{name: "participant added without owner", signal: lifecycle.ParticipantAdded("s1", ""), wantErr: "owner_id"},
		{name: "participant removed", signal: lifecycle.ParticipantRemoved("s1")},
		{name: "participant removed without id", signal: lifecycle.ParticipantRemoved(""), wantErr: "subscription_id"},
		{name: "event updated", signal: lifecycle.EventUpdated(event.Patch{Location: ptr("Hall B")})},
		{name: "empty patch", signal: lifecycle.EventUpdated(event.Patch{}), wantErr: "patch"},
		{name: "blank name", signal: lifecycle.EventUpdated(event.Patch{Name: ptr("")}), wantErr: "patch.name"},
		{
			name:    "end before start",
			signal:  lifecycle.EventUpdated(event.Patch{StartsAt: ptr(start), EndsAt: ptr(start.Add(-time.Hour))}),
			wantErr: "patch.ends_at",
		},
		{name: "manual", signal: lifecycle.ManualNotification("Heads up", "Doors open", notifications.LevelInfo)},
		{name: "manual targeted", signal: lifecycle.ManualNotification("Heads up", "Doors open", notifications.LevelWarning, "s1", "s2")},
		{name: "manual without title", signal: lifecycle.ManualNotification("", "Doors open", notifications.LevelInfo), wantErr: "title"},
		{name: "manual bad level", signal: lifecycle.ManualNotification("Hi", "Body", "loud"), wantErr: "level"},
		{name: "manual long body", signal: lifecycle.ManualNotification("Hi", strings.Repeat("x", 5001), notifications.LevelInfo), wantErr: "body"},
		{name: "cancel", signal: lifecycle.CancelEvent()},
		{name: "unknown kind", signal: lifecycle.Signal{Kind: "explode"}, wantErr: "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.signal.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, lifecycle.ErrInvalidSignal)
			assert.True(t, validator.ExtractValidationErrors(err).Has(tt.wantErr), "expected error on %s, got %v", tt.wantErr, err)
		})
	}
}
