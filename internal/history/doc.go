// Package history records completed retrieval runs and their per-item
// outcomes in a local SQLite database for later inspection.
package history
