package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks a failure worth retrying on the same method.
	ErrTransient = errors.New("transient failure")
	// ErrEnvironment marks a precondition failure local to one method; the
	// executor abandons the method and advances to the next one.
	ErrEnvironment = errors.New("environment failure")
	// ErrTerminal marks a failure that no retry or fallback can recover.
	ErrTerminal = errors.New("terminal failure")
	// ErrScheduling marks a failure to start the worker pool itself.
	ErrScheduling = errors.New("scheduling failure")
	// ErrLockTimeout marks a manifest lock acquisition that ran out of time.
	ErrLockTimeout = errors.New("lock timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTerminal reports whether err aborts the whole method chain.
func IsTerminal(err error) bool { return errors.Is(err, ErrTerminal) }

// IsEnvironment reports whether err abandons the current method only.
func IsEnvironment(err error) bool { return errors.Is(err, ErrEnvironment) }

// IsLockTimeout reports whether err came from a manifest lock deadline.
func IsLockTimeout(err error) bool { return errors.Is(err, ErrLockTimeout) }

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
