// Package stream is an in-process pub/sub broker for live job status
// fan-out. Broker implements registry.StatusPublisher: the registry
// calls Publish on every status/state update, and the broker fans the
// resulting StatusEvent out to every subscriber watching that job (or
// the firehose topic).
//
// This lets a REST layer expose a "watch this job" endpoint — e.g.
// server-sent events — without polling GetJobInfo in a loop. It is
// purely observational, exactly like the hooks package: a slow or gone
// subscriber never affects engine workers. A full subscriber buffer
// drops its oldest queued event to make room for the new one rather
// than blocking the publishing goroutine.
package stream
