// Package methods implements the alternative retrieval strategies a work
// item is attempted through: HTTP mirror download, local cache lookup, and
// mounted share copy. Each strategy tags its failures with the services
// error markers so the executor can decide between retry, fallback, and
// abort.
package methods
