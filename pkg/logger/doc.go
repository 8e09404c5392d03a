// Package logger builds slog loggers and holds the attribute helpers used
// across eventkit, so keys such as event_id or subscription_id are spelled
// the same everywhere.
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Parse(os.Getenv("APP_ENV")), "eventd"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "reminder sent",
//		logger.EventID(e.ID),
//		logger.SubscriptionID(sub.ID),
//		logger.Offset(900),
//	)
//
// Error and UserID return an empty attribute for zero input, which slog
// omits, so they can be passed unconditionally.
package logger
