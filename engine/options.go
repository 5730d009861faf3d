package engine

import (
	"log/slog"
	"time"

	"github.com/orthanc-go/jobengine/backoff"
	"github.com/orthanc-go/jobengine/middleware"
)

// Option configures a JobsEngine.
type Option func(*JobsEngine)

// WithWorkerCount sets the number of concurrent worker goroutines. The
// default is 4.
func WithWorkerCount(n int) Option {
	return func(e *JobsEngine) { e.workerCount = n }
}

// WithMiddleware appends middleware to the engine's step chain, applied
// in the order given after the built-in Recover wrapper.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *JobsEngine) { e.mws = append(e.mws, mws...) }
}

// WithBackoffStrategy sets the strategy used to compute a retry delay
// for jobs.RetryWithBackoff results. The default is
// backoff.DefaultStrategy().
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(e *JobsEngine) { e.backoffStrategy = s }
}

// WithAcquireTimeout sets how long a worker blocks in Acquire before
// looping to check for shutdown. The default is one second; it rarely
// needs tuning since Acquire wakes immediately on a new submission.
func WithAcquireTimeout(d time.Duration) Option {
	return func(e *JobsEngine) { e.acquireTimeout = d }
}

// WithRetryPollInterval sets how often the engine scans the registry's
// retry set for jobs whose delay has elapsed. The default is one
// second.
func WithRetryPollInterval(d time.Duration) Option {
	return func(e *JobsEngine) { e.retryPollInterval = d }
}

// WithStepTimeout sets the per-step deadline passed to the middleware
// chain's StepInfo. Zero, the default, means no deadline. The deadline
// is applied only when middleware.Timeout is added via WithMiddleware;
// the engine's built-in chain holds only middleware.Recover.
func WithStepTimeout(d time.Duration) Option {
	return func(e *JobsEngine) { e.stepTimeout = d }
}

// WithLogger sets the logger used for lifecycle and panic-recovery
// logging. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *JobsEngine) { e.logger = logger }
}
