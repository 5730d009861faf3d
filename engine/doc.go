// Package engine drives workers against a registry.JobsRegistry.
//
// JobsEngine owns a fixed pool of worker goroutines, each of which
// repeatedly acquires a lease from the registry, drives the leased
// job's ExecuteStep through a middleware chain until it reaches a
// terminal outcome or is asked to pause, and releases the lease. A
// separate goroutine polls the registry's retry set on an interval,
// promoting jobs whose delay has elapsed back to Pending.
//
// # Building an engine
//
//	reg := registry.New(registry.WithMaxCompletedJobs(50))
//	eng := engine.New(reg,
//	    engine.WithWorkerCount(4),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	    engine.WithBackoffStrategy(backoff.DefaultStrategy()),
//	)
//	eng.Start(ctx)
//	defer eng.Stop(ctx)
package engine
