package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/orthanc-go/jobengine/hooks"
)

// meterName is the instrumentation scope name for job engine metrics.
const meterName = "github.com/orthanc-go/jobengine"

// Compile-time interface checks.
var (
	_ hooks.Extension      = (*MetricsExtension)(nil)
	_ hooks.JobSubmitted   = (*MetricsExtension)(nil)
	_ hooks.JobStarted     = (*MetricsExtension)(nil)
	_ hooks.JobPaused      = (*MetricsExtension)(nil)
	_ hooks.JobResumed     = (*MetricsExtension)(nil)
	_ hooks.JobCancelled   = (*MetricsExtension)(nil)
	_ hooks.JobSucceeded   = (*MetricsExtension)(nil)
	_ hooks.JobFailed      = (*MetricsExtension)(nil)
	_ hooks.JobRetrying    = (*MetricsExtension)(nil)
	_ hooks.JobResubmitted = (*MetricsExtension)(nil)
	_ hooks.JobPruned      = (*MetricsExtension)(nil)
)

// MetricsExtension records job lifecycle counters and a completion
// duration histogram via an OpenTelemetry Meter. Register it with a
// hooks.Registry to track submission rates, completion counts, failure
// rates, retry counts, and ring pruning.
type MetricsExtension struct {
	submitted   metric.Int64Counter
	started     metric.Int64Counter
	paused      metric.Int64Counter
	resumed     metric.Int64Counter
	cancelled   metric.Int64Counter
	succeeded   metric.Int64Counter
	failed      metric.Int64Counter
	retrying    metric.Int64Counter
	resubmitted metric.Int64Counter
	pruned      metric.Int64Counter
	duration    metric.Float64Histogram

	logger *slog.Logger
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider. If none is configured, instruments fall back to the
// noop implementation and this extension becomes a pass-through.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension using the
// provided Meter, for injecting a specific MeterProvider in tests.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{logger: slog.Default()}

	m.submitted, _ = meter.Int64Counter("jobengine.job.submitted")
	m.started, _ = meter.Int64Counter("jobengine.job.started")
	m.paused, _ = meter.Int64Counter("jobengine.job.paused")
	m.resumed, _ = meter.Int64Counter("jobengine.job.resumed")
	m.cancelled, _ = meter.Int64Counter("jobengine.job.cancelled")
	m.succeeded, _ = meter.Int64Counter("jobengine.job.succeeded")
	m.failed, _ = meter.Int64Counter("jobengine.job.failed")
	m.retrying, _ = meter.Int64Counter("jobengine.job.retrying")
	m.resubmitted, _ = meter.Int64Counter("jobengine.job.resubmitted")
	m.pruned, _ = meter.Int64Counter("jobengine.job.pruned")
	m.duration, _ = meter.Float64Histogram("jobengine.job.duration", metric.WithUnit("ms"))

	return m
}

// Name implements hooks.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func priorityAttr(j hooks.JobInfo) attribute.KeyValue {
	return attribute.Int("priority", j.Priority)
}

// OnJobSubmitted implements hooks.JobSubmitted.
func (m *MetricsExtension) OnJobSubmitted(ctx context.Context, j hooks.JobInfo) error {
	m.submitted.Add(ctx, 1, metric.WithAttributes(priorityAttr(j)))
	return nil
}

// OnJobStarted implements hooks.JobStarted.
func (m *MetricsExtension) OnJobStarted(ctx context.Context, j hooks.JobInfo) error {
	m.started.Add(ctx, 1, metric.WithAttributes(priorityAttr(j)))
	return nil
}

// OnJobPaused implements hooks.JobPaused.
func (m *MetricsExtension) OnJobPaused(ctx context.Context, j hooks.JobInfo) error {
	m.paused.Add(ctx, 1)
	return nil
}

// OnJobResumed implements hooks.JobResumed.
func (m *MetricsExtension) OnJobResumed(ctx context.Context, j hooks.JobInfo) error {
	m.resumed.Add(ctx, 1)
	return nil
}

// OnJobCancelled implements hooks.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, j hooks.JobInfo) error {
	m.cancelled.Add(ctx, 1)
	return nil
}

// OnJobSucceeded implements hooks.JobSucceeded.
func (m *MetricsExtension) OnJobSucceeded(ctx context.Context, j hooks.JobInfo, elapsed time.Duration) error {
	m.succeeded.Add(ctx, 1, metric.WithAttributes(priorityAttr(j)))
	m.duration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attribute.String("outcome", "success")))
	return nil
}

// OnJobFailed implements hooks.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j hooks.JobInfo, _ error) error {
	m.failed.Add(ctx, 1, metric.WithAttributes(priorityAttr(j)))
	return nil
}

// OnJobRetrying implements hooks.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j hooks.JobInfo, _ time.Time) error {
	m.retrying.Add(ctx, 1, metric.WithAttributes(priorityAttr(j)))
	return nil
}

// OnJobResubmitted implements hooks.JobResubmitted.
func (m *MetricsExtension) OnJobResubmitted(ctx context.Context, j hooks.JobInfo) error {
	m.resubmitted.Add(ctx, 1)
	return nil
}

// OnJobPruned implements hooks.JobPruned.
func (m *MetricsExtension) OnJobPruned(ctx context.Context, j hooks.JobInfo) error {
	m.pruned.Add(ctx, 1)
	return nil
}
