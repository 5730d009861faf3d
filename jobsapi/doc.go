// Package jobsapi defines the REST contract a handler layer uses to
// drive a registry.JobsRegistry. It ships only types — request bodies,
// response shapes, and the JobFactory capability a handler implements
// to turn a request into a concrete jobs.Job — not a server. Wiring
// these to net/http, a router, and a JSON codec is left to the caller,
// per the engine's "library, not a service" posture.
package jobsapi
