package logger

import (
	"log/slog"
	"strconv"
)

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors records the non-nil errs under "errors", keyed by position.
func Errors(errs ...error) slog.Attr {
	attrs := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			attrs = append(attrs, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(attrs) == 0 {
		return slog.Attr{}
	}
	return Group("errors", attrs...)
}

func Component(name string) slog.Attr { return slog.String("component", name) }

func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

func EventID(id string) slog.Attr        { return slog.String("event_id", id) }
func SubscriptionID(id string) slog.Attr { return slog.String("subscription_id", id) }
func ChannelID(id string) slog.Attr      { return slog.String("channel_id", id) }
func TaskID(id string) slog.Attr         { return slog.String("task_id", id) }

// Offset records a reminder offset in seconds.
func Offset(seconds int64) slog.Attr { return slog.Int64("offset_seconds", seconds) }

// Signal records the kind of a coordinator signal.
func Signal(kind string) slog.Attr { return slog.String("signal", kind) }
