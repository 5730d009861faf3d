package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orthanc-go/jobengine/jobs"
)

// tracerName is the instrumentation scope name for job engine tracing.
const tracerName = "github.com/orthanc-go/jobengine"

// Tracing returns middleware that wraps step execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided
// tracer, for injecting a specific TracerProvider in tests.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, info StepInfo, next Handler) (jobs.StepResult, error) {
		ctx, span := tracer.Start(ctx, "jobengine.job.step",
			trace.WithAttributes(
				attribute.String("jobengine.job.id", info.ID.String()),
				attribute.Int("jobengine.job.priority", info.Priority),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		result, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("jobengine.job.outcome", result.Outcome().String()))
			span.SetStatus(codes.Ok, "")
		}

		return result, err
	}
}
