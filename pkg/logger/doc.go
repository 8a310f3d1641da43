// Package logger provides a context-aware wrapper around slog with functional
// options, helper attribute constructors, and injection of values stored in
// context.Context.
//
// New builds a *slog.Logger: the Format option selects slog.NewTextHandler or
// slog.NewJSONHandler, and the resulting handler is wrapped with
// LogHandlerDecorator, which runs any registered ContextExtractor callbacks
// before delegating. NewFromConfig does the same from the LOG_LEVEL /
// LOG_FORMAT environment surface.
//
// Attribute helpers in attr.go keep key naming consistent across the
// pipeline: StorageKey, ObjectID, State, Attempt and friends, plus Error and
// Errors which yield an empty Attr for nil errors so callers can log
// unconditionally:
//
//	log := logger.New(
//	    logger.WithProduction("fileguard"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	log.InfoContext(ctx, "scan finished",
//	    logger.StorageKey(key),
//	    logger.Attempt(attempt),
//	    logger.Error(err),
//	)
package logger
