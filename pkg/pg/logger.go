package pg

import "context"

// logger is the subset of *slog.Logger needed to route migration output
// through the application log stream.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
