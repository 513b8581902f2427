// Package api exposes request/response functions the CLI (and any future
// dashboard) calls to inspect and mutate the queue. Each function opens the
// store for the duration of the call; long-lived consumers should hold an
// orchestrator instead.
package api
