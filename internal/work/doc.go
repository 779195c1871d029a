// Package work defines the data model shared by the scheduler, the
// executor, and the progress coordinator: work items, operation results,
// and progress events, plus work-list file parsing.
package work
