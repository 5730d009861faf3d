package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/orthanc-go/jobengine/jobs"
)

// Recover returns middleware that recovers from panics raised while
// executing a step. Panics are converted into a Failure step result
// and logged with a stack trace, so a misbehaving job never takes down
// a worker goroutine.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, info StepInfo, next Handler) (result jobs.StepResult, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job step panicked",
					slog.String("job_id", info.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				result = jobs.Failure()
				retErr = fmt.Errorf("panic in job %s: %v", info.ID, r)
			}
		}()
		return next(ctx)
	}
}
