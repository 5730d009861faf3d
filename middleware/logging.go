package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/orthanc-go/jobengine/jobs"
)

// Logging returns middleware that logs the start and outcome of every
// step at debug level, so it stays quiet in production by default.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, info StepInfo, next Handler) (jobs.StepResult, error) {
		logger.Debug("job step started",
			slog.String("job_id", info.ID.String()),
			slog.Int("priority", info.Priority),
		)

		start := time.Now()
		result, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Debug("job step failed",
				slog.String("job_id", info.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("job step finished",
				slog.String("job_id", info.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("outcome", result.Outcome().String()),
			)
		}

		return result, err
	}
}
