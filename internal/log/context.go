package log

import (
	"context"
	"log/slog"

	"github.com/chainguard-dev/clog"
)

// WithContext attaches logger to ctx so that code using clog.FromContext
// (retry loops, model calls) writes through the same secure handler.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return clog.WithLogger(ctx, clog.NewLogger(logger))
}
