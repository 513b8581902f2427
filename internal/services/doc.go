// Package services defines shared utilities consumed by pipeline stage
// processors and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that distinguish
//     permanent failures (validation, configuration) from transient ones the
//     worker pool may retry.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
