// Package executor runs one logical retrieval through an ordered list of
// method strategies with per-method retry and linear backoff. Failures are
// classified through the services error markers: terminal failures abandon
// the whole chain, environment failures skip to the next method, and
// anything else is retried on the same method.
package executor
