// Package orchestrator composes the queue store, worker pool, flow
// scheduler, and review gate behind one object with an explicit open/close
// lifecycle. Collaborators hold a reference to it instead of caching
// connections at module level.
package orchestrator
