// Package daemon hosts the orchestrator as a long-running service with
// single-instance enforcement via a file lock.
package daemon
