package middleware

import (
	"context"
	"log/slog"

	"github.com/orthanc-go/jobengine/jobs"
)

// Timeout returns middleware that enforces the handler's optional
// per-step deadline. If info.Timeout is non-zero, a context.WithTimeout
// wraps the step call. The deadline is advisory: it cancels ctx, but a
// step that does not observe cancellation runs to completion, per the
// engine's rule that a running step is never forcibly interrupted.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, info StepInfo, next Handler) (jobs.StepResult, error) {
		if info.Timeout > 0 {
			logger.Debug("job step deadline set",
				slog.String("job_id", info.ID.String()),
				slog.Duration("timeout", info.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, info.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
