// Package middleware provides composable middleware for job execution.
//
// A [Middleware] is a function that wraps a step handler. Middleware are
// composed into a chain using [Chain] and applied around every call to
// ExecuteStep. They are applied right-to-left: the first middleware in
// the slice is the outermost wrapper.
//
//	// recover → logging → timeout → handler
//	chain := middleware.Chain(middleware.Recover(logger), middleware.Logging(logger), middleware.Timeout(logger))
//
// # Built-in Middleware
//
//   - [Recover] — catches panics and converts them to a Failure result
//   - [Logging] — logs step start, duration, and outcome at debug level
//   - [Timeout] — applies the handler's optional per-step deadline
//   - [Tracing] — wraps step execution in an OpenTelemetry span
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, info middleware.StepInfo, next middleware.Handler) (jobs.StepResult, error) {
//	        // pre-processing
//	        result, err := next(ctx)
//	        // post-processing
//	        return result, err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
