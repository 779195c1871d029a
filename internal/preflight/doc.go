// Package preflight validates the local environment before a retrieval
// run: staging and lock directories must be writable, configured cache and
// share roots readable, and the staging filesystem must have headroom.
package preflight
