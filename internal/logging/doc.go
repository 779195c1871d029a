// Package logging configures the slog stack shared by every component.
//
// It provides the JSON and console handlers, standardized field names, attr
// helpers, and context-derived logger augmentation so workers, the executor,
// and the manifest store all log with a consistent vocabulary.
package logging
