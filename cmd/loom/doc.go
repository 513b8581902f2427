// Package main hosts the loom CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into queue
// operations against the shared SQLite store: enqueueing jobs, scheduling
// pipeline flows, resolving review decisions, and configuration scaffolding.
// It centralizes configuration resolution so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
