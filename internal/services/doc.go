// Package services defines shared utilities consumed by the worker pool,
// the method strategies, and the manifest store.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs, method names, and run
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the executor
//     classify failures as transient, environment-specific, or terminal.
//
// Use these helpers when wiring new method strategies so operational
// behaviour (error handling, observability, retries) stays uniform.
package services
