// Package worker runs the processor loops that drain the queue. Each pool
// claims eligible jobs for its registered types (children-first ordering and
// delay/priority come from the queue itself), executes the bound processor
// under a per-job deadline with heartbeats, and converts failures into
// retry-or-fail decisions via the shared retry classifier.
//
// Jobs whose type has no registered processor are left untouched; other
// worker processes may own them. Review jobs are never claimed here at all.
package worker
