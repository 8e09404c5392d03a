package lifecycle

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
)

var fieldLabels = map[string]string{
	"name":        "Name",
	"starts_at":   "Start time",
	"ends_at":     "End time",
	"location":    "Location",
	"description": "Description",
}

func createdMessage(e event.Event) notifications.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "%s starts %s.", e.Name, event.FormatTime(e.StartsAt))
	if e.Location != "" {
		fmt.Fprintf(&body, " Location: %s.", e.Location)
	}
	if e.Description != "" {
		body.WriteString("\n\n" + e.Description)
	}
	return notifications.Message{
		Level: notifications.LevelInfo,
		Title: "New event: " + e.Name,
		Body:  body.String(),
	}
}

func updatedMessage(e event.Event, changes []event.Change) notifications.Message {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		switch {
		case c.From == "":
			lines = append(lines, fmt.Sprintf("%s set to %s.", fieldLabels[c.Field], c.To))
		case c.To == "":
			lines = append(lines, fmt.Sprintf("%s removed.", fieldLabels[c.Field]))
		default:
			lines = append(lines, fmt.Sprintf("%s changed from %s to %s.", fieldLabels[c.Field], c.From, c.To))
		}
	}

	level := notifications.LevelInfo
	if event.StartChanged(changes) {
		level = notifications.LevelWarning
	}
	return notifications.Message{
		Level: level,
		Title: "Event updated: " + e.Name,
		Body:  strings.Join(lines, "\n"),
	}
}

func cancelledMessage(e event.Event) notifications.Message {
	return notifications.Message{
		Level: notifications.LevelCritical,
		Title: "Event cancelled: " + e.Name,
		Body:  fmt.Sprintf("%s scheduled for %s has been cancelled.", e.Name, event.FormatTime(e.StartsAt)),
	}
}
