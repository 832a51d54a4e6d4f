package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
)

// requestContext derives the per-request context: a request-scoped logger and
// the request ceiling. parent must outlive any streaming writer using it.
func requestContext(parent context.Context, base *slog.Logger, timeout time.Duration) (context.Context, context.CancelFunc, *slog.Logger) {
	if base == nil {
		base = slog.Default()
	}
	log := base.With(slog.String("request_id", uuid.NewString()))
	ctx := logging.WithContext(parent, log)
	if timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, log
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, log
}
