// Package manifest maintains the shared install manifest: a JSON array of
// installer registrations with dense 1-based priorities, consumed by the
// downstream installer in priority order.
//
// All mutation goes through a cross-process advisory lock keyed by a stable
// hash of the manifest path, so many workers (and many processes) can
// contribute entries without lost updates or a corrupted document. A corrupt
// manifest on disk is backed up under a timestamped name and rebuilt from
// empty rather than failing the caller.
package manifest
