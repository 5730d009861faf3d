// Package observability provides an OpenTelemetry-based metrics
// extension for the job engine. MetricsExtension implements the hooks
// lifecycle interfaces to record counters for every job transition and
// a histogram of the runtime of jobs that succeeded.
//
// For per-step tracing, see middleware.Tracing.
package observability
