// Package pool schedules work items onto a bounded set of concurrent
// workers and coordinates their progress stream.
//
// Workers pull from a shared feed, so a slot freed by a finished item is
// reused immediately. Worker panics are converted into failed results; the
// coordinator guarantees exactly one terminal event and exactly one result
// per submitted item, and drops progress events that arrive after an item
// has already finished.
package pool
