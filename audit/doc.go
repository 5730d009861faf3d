// Package audit is a job engine extension that bridges registry lifecycle
// events to an immutable audit trail backend.
//
// Every job lifecycle hook emits a structured audit event through the
// [Recorder] interface. The extension assigns a severity (info for
// normal operations including pauses, warning for retries and
// cancellations, critical for
// terminal failures) and attaches metadata (priority, progress, the
// recorded error).
//
// # Usage
//
//	reg := hooks.NewRegistry(logger)
//	reg.Register(audit.New(audit.RecorderFunc(func(ctx context.Context, evt *audit.Event) error {
//	    return myBackend.Write(ctx, evt)
//	})))
//
// # Selective filtering
//
//	audit.New(recorder,
//	    audit.WithActions(
//	        audit.ActionJobFailed,
//	        audit.ActionJobCancelled,
//	    ),
//	)
package audit
