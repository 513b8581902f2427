// Package logging wires slog with loom's console and JSON handlers plus the
// attribute helpers and standardized field keys the rest of the codebase
// logs with. Loggers derived through WithContext automatically carry job,
// stage, and correlation identifiers stamped into the context by the worker
// pool.
package logging
