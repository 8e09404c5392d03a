package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
)

// HumanizeOffset renders an offset in seconds in the largest unit that
// divides it exactly: "1 day", "3 hours", "15 minutes", "90 seconds" or "now".
func HumanizeOffset(seconds int64) string {
	switch {
	case seconds <= 0:
		return "now"
	case seconds%86400 == 0:
		return plural(seconds/86400, "day")
	case seconds%3600 == 0:
		return plural(seconds/3600, "hour")
	case seconds%60 == 0:
		return plural(seconds/60, "minute")
	default:
		return plural(seconds, "second")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Format builds the reminder message sent offset seconds before e starts.
func Format(e event.Event, offset int64, loc *time.Location) notifications.Message {
	if loc == nil {
		loc = time.UTC
	}

	when := "starts in " + HumanizeOffset(offset)
	if offset <= 0 {
		when = "is starting now"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s %s (%s).", e.Name, when, e.StartsAt.In(loc).Format("Mon, 02 Jan 2006 15:04 MST"))
	if e.Location != "" {
		fmt.Fprintf(&body, " Location: %s.", e.Location)
	}

	level := notifications.LevelInfo
	if offset <= 15*60 {
		level = notifications.LevelWarning
	}

	return notifications.Message{
		EventID: e.ID,
		Level:   level,
		Title:   "Reminder: " + e.Name,
		Body:    body.String(),
	}
}
