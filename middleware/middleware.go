// Package middleware provides composable middleware for job step
// execution. Middleware wraps a handler's ExecuteStep call synchronously
// and can modify execution (recover from panics, log, enforce a
// deadline, add tracing, etc.).
package middleware

import (
	"context"
	"time"

	"github.com/orthanc-go/jobengine/id"
	"github.com/orthanc-go/jobengine/jobs"
)

// StepInfo describes the handler whose step is being executed, for
// middleware that wants to log or annotate without reaching into the
// registry.
type StepInfo struct {
	ID       id.JobID
	Priority int
	Timeout  time.Duration
}

// Handler is the terminal function that executes one job step.
type Handler func(ctx context.Context) (jobs.StepResult, error)

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the handler info, and the next handler to call.
// Middleware MUST call next to continue the chain (unless
// short-circuiting with its own result).
type Middleware func(ctx context.Context, info StepInfo, next Handler) (jobs.StepResult, error)

// Chain composes multiple middleware into a single Middleware. Middleware
// are applied right-to-left: the first middleware in the list is the
// outermost wrapper.
//
// Example: Chain(recover, logging, timeout) executes as:
//
//	recover → logging → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, info StepInfo, next Handler) (jobs.StepResult, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (jobs.StepResult, error) {
				return mw(ctx, info, prev)
			}
		}
		return h(ctx)
	}
}
