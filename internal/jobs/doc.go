// Package jobs is the single source of truth for pipeline job types, the
// canonical stage order, and the payload shape attached to each type.
//
// It is pure data: no I/O and no error paths beyond envelope validation.
// The queue, flow scheduler, worker pool, and CLI all route on these names,
// which keeps type spellings from drifting between components.
package jobs
