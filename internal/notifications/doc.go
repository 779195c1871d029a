// Package notifications delivers push notifications for run lifecycle
// events through ntfy. Without a configured topic the service degrades to
// a noop so callers never branch on whether notifications are enabled.
package notifications
