// Package queue persists pipeline jobs in SQLite and exposes the lifecycle
// primitives the rest of loom is built on: enqueue with a default retry
// envelope, atomic flow submission, dependency-aware dequeue, optimistic
// (version-guarded) mutation, heartbeat tracking with stale-job reclaim, and
// health/history queries.
//
// The database is transient storage for in-flight work rather than a
// long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add statuses or columns, update schema.sql and bump schemaVersion.
package queue
