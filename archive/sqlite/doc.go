// Package sqlite provides a registry.Archiver backed by a local SQLite
// database, for operators who want a durable history of completed jobs
// beyond the registry's bounded in-memory ring.
//
// Only terminal, already-serialized snapshots are written, and only
// once a handler is about to be evicted from the completed ring — this
// never persists in-flight step state. A failing or slow write degrades
// archival history only; it never changes engine-visible behavior,
// since Archiver.OnEvict runs synchronously under the registry's mutex
// but its errors are logged and swallowed rather than propagated.
package sqlite
