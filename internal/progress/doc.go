// Package progress implements the event queue between retrieval workers and
// the coordinating loop. Workers publish status transitions; the coordinator
// drains them in publish order and forwards them to the observer.
package progress
