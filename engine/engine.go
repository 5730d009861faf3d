package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orthanc-go/jobengine/backoff"
	"github.com/orthanc-go/jobengine/ferrors"
	"github.com/orthanc-go/jobengine/id"
	"github.com/orthanc-go/jobengine/jobs"
	"github.com/orthanc-go/jobengine/middleware"
	"github.com/orthanc-go/jobengine/registry"
)

// errStepFailed is the fallback cause recorded when a step reports
// jobs.OutcomeFailure without an accompanying error.
var errStepFailed = ferrors.New(ferrors.InternalError, "job step reported failure")

// JobsEngine drives a fixed pool of worker goroutines against a
// registry.JobsRegistry: each worker repeatedly acquires a lease,
// steps the leased job through the middleware chain until it reaches
// a terminal outcome or is asked to pause, and releases the lease. A
// separate goroutine promotes jobs in the retry set back to Pending
// once their delay elapses.
type JobsEngine struct {
	registry *registry.JobsRegistry

	workerCount       int
	acquireTimeout    time.Duration
	retryPollInterval time.Duration
	stepTimeout       time.Duration
	backoffStrategy   backoff.Strategy

	mws   []middleware.Middleware
	chain middleware.Middleware

	logger *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a JobsEngine bound to reg. It does not start any
// goroutines; call Start for that.
func New(reg *registry.JobsRegistry, opts ...Option) *JobsEngine {
	e := &JobsEngine{
		registry:          reg,
		workerCount:       4,
		acquireTimeout:    time.Second,
		retryPollInterval: time.Second,
		backoffStrategy:   backoff.DefaultStrategy(),
		logger:            slog.Default(),
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the worker goroutines and the retry-scheduling
// goroutine. It returns immediately; calling Start on an already
// running engine is a no-op.
func (e *JobsEngine) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}
	e.running = true

	all := make([]middleware.Middleware, 0, len(e.mws)+1)
	all = append(all, middleware.Recover(e.logger))
	all = append(all, e.mws...)
	e.chain = middleware.Chain(all...)

	e.logger.Info("job engine starting",
		slog.Int("workers", e.workerCount),
	)

	for range e.workerCount {
		e.wg.Add(1)
		go e.workerLoop()
	}

	e.wg.Add(1)
	go e.retryLoop()

	return nil
}

// Stop signals all goroutines to stop and waits for them to finish,
// then fires the registry's shutdown hooks (e.g. closing a stream
// broker's subscribers). If ctx carries a deadline, Stop returns once
// it is reached even if workers are still draining a lease; a lease in
// flight is never forcibly interrupted, so its worker goroutine
// finishes on its own time and Stop's caller should not assume the
// registry is quiescent the instant Stop returns in that case.
func (e *JobsEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	e.logger.Info("job engine stopping")
	close(e.stopCh)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("job engine stopped")
	case <-ctx.Done():
		e.logger.Warn("job engine shutdown deadline reached with leases still in flight")
	}

	e.registry.Shutdown(ctx)

	return nil
}

// workerLoop is run by each worker goroutine.
func (e *JobsEngine) workerLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		rj, ok := e.registry.Acquire(e.acquireTimeout)
		if !ok {
			continue
		}

		e.runLease(rj)
	}
}

// retryLoop periodically promotes eligible retry-set entries back to
// Pending.
func (e *JobsEngine) retryLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.retryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.registry.ScheduleRetries()
		}
	}
}

// runLease drives rj's job through one or more steps, committing
// exactly one outcome via Release before returning.
func (e *JobsEngine) runLease(rj *registry.RunningJob) {
	jobID, _ := id.Parse(rj.ID())

	for {
		info := middleware.StepInfo{
			ID:       jobID,
			Priority: rj.Priority(),
			Timeout:  e.stepTimeout,
		}

		terminal := func(ctx context.Context) (jobs.StepResult, error) {
			return rj.Job().ExecuteStep(ctx)
		}

		result, err := e.chain(context.Background(), info, terminal)

		if err != nil {
			rj.MarkFailure(err)
			rj.Release()
			return
		}

		switch result.Outcome() {
		case jobs.OutcomeSuccess:
			rj.MarkSuccess()
			rj.Release()
			return

		case jobs.OutcomeFailure:
			rj.MarkFailure(errStepFailed)
			rj.Release()
			return

		case jobs.OutcomeRetry:
			delay := result.RetryDelay()
			if result.UsesBackoff() {
				delay = e.backoffStrategy.Delay(rj.Retries())
			}
			rj.MarkRetry(delay)
			rj.Release()
			return

		case jobs.OutcomeContinue:
			if err := rj.UpdateStatus(rj.Job().GetProgress()); err != nil {
				rj.MarkFailure(err)
				rj.Release()
				return
			}
			if d, ok := rj.Job().(jobs.Describer); ok {
				rj.SetDescription(d.Describe())
			}
			if rj.IsPauseScheduled() {
				rj.MarkPaused()
				rj.Release()
				return
			}
			// Same lease, same worker: step again without releasing
			// back to the pending queue.
			continue

		default:
			rj.MarkFailure(fmt.Errorf("job step returned unknown outcome %v", result.Outcome()))
			rj.Release()
			return
		}
	}
}
