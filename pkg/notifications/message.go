package notifications

import "time"

// Level is the urgency of a message.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Levels lists every valid level.
var Levels = []string{string(LevelInfo), string(LevelWarning), string(LevelCritical)}

// Message is what every backend delivers.
type Message struct {
	EventID string    `json:"event_id"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}
