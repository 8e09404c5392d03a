package event

import (
	"time"
)

const timeLayout = "Mon, 02 Jan 2006 15:04 MST"

// Patch is a partial update of event attributes. Nil fields are left untouched.
type Patch struct {
	Name        *string    `json:"name,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// Change describes one attribute modified by a patch.
type Change struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// IsEmpty reports whether the patch carries no fields.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.StartsAt == nil && p.EndsAt == nil &&
		p.Location == nil && p.Description == nil
}

// Apply merges the patch into e and returns the result along with the
// attributes whose value actually changed.
func (p Patch) Apply(e Event) (Event, []Change) {
	var changes []Change

	if p.Name != nil && *p.Name != e.Name {
		changes = append(changes, Change{Field: "name", From: e.Name, To: *p.Name})
		e.Name = *p.Name
	}
	if p.StartsAt != nil && !p.StartsAt.Equal(e.StartsAt) {
		changes = append(changes, Change{
			Field: "starts_at",
			From:  e.StartsAt.Format(timeLayout),
			To:    p.StartsAt.Format(timeLayout),
		})
		e.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil && (e.EndsAt == nil || !p.EndsAt.Equal(*e.EndsAt)) {
		from := ""
		if e.EndsAt != nil {
			from = e.EndsAt.Format(timeLayout)
		}
		changes = append(changes, Change{Field: "ends_at", From: from, To: p.EndsAt.Format(timeLayout)})
		endsAt := *p.EndsAt
		e.EndsAt = &endsAt
	}
	if p.Location != nil && *p.Location != e.Location {
		changes = append(changes, Change{Field: "location", From: e.Location, To: *p.Location})
		e.Location = *p.Location
	}
	if p.Description != nil && *p.Description != e.Description {
		changes = append(changes, Change{Field: "description", From: e.Description, To: *p.Description})
		e.Description = *p.Description
	}

	return e, changes
}

// StartChanged reports whether the changes include a new start time.
func StartChanged(changes []Change) bool {
	return hasField(changes, "starts_at")
}

// EndChanged reports whether the changes include a new end time.
func EndChanged(changes []Change) bool {
	return hasField(changes, "ends_at")
}

func hasField(changes []Change, field string) bool {
	for _, c := range changes {
		if c.Field == field {
			return true
		}
	}
	return false
}

// FormatTime renders t the way notifications show event times.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}
