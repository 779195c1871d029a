package work

import (
	"strings"
	"time"
)

// Item is one independently schedulable retrieval.
type Item struct {
	// ID uniquely identifies the item within a run.
	ID string `toml:"id"`
	// Label is the human-readable name shown in progress output.
	Label string `toml:"label"`
	// Category groups items for reporting (e.g. "driver", "application").
	Category string `toml:"category"`
	// Variant optionally narrows candidate selection (e.g. "x64").
	Variant string `toml:"variant"`
	// Sources are the locators tried by the method strategies, in order:
	// URLs for httpfetch, relative paths for cachecopy/sharecopy.
	Sources []string `toml:"sources"`
	// Destination is the file the retrieved package is written to. Each
	// item owns its destination exclusively.
	Destination string `toml:"destination"`
	// Candidates optionally lists the concrete releases a catalog offers
	// for this item. When present, selection picks one and its locator is
	// tried before Sources.
	Candidates []CandidateSpec `toml:"candidate"`
	// Installer, when present, registers the package in the install
	// manifest after a successful retrieval.
	Installer *InstallerSpec `toml:"installer"`
}

// CandidateSpec is one release declared in the work list for an item.
type CandidateSpec struct {
	Name       string    `toml:"name"`
	Version    string    `toml:"version"`
	Variant    string    `toml:"variant"`
	Locator    string    `toml:"locator"`
	ReleasedAt time.Time `toml:"released_at"`
}

// InstallerSpec describes the manifest entry contributed by an item.
type InstallerSpec struct {
	Name              string `toml:"name"`
	CommandLine       string `toml:"command_line"`
	Arguments         string `toml:"arguments"`
	DependencyFor     string `toml:"dependency_for"`
	PackageIdentifier string `toml:"package_identifier"`
}

// DisplayLabel returns the label, falling back to the identifier.
func (i Item) DisplayLabel() string {
	if label := strings.TrimSpace(i.Label); label != "" {
		return label
	}
	return i.ID
}

// Metrics carries measurements for one completed operation.
type Metrics struct {
	BytesTransferred int64
	Duration         time.Duration
	Attempts         int
}

// Result is the single terminal outcome produced for every Item.
type Result struct {
	ID           string
	Success      bool
	Method       string
	ErrorMessage string
	Metrics      Metrics
}

// EventKind enumerates the progress states a worker reports.
type EventKind string

const (
	EventQueued        EventKind = "queued"
	EventAttempting    EventKind = "attempting"
	EventAttemptFailed EventKind = "attempt_failed"
	EventMethodFailed  EventKind = "method_failed"
	EventSucceeded     EventKind = "succeeded"
	EventFailed        EventKind = "failed"
)

// Terminal reports whether the kind ends an item's lifecycle.
func (k EventKind) Terminal() bool {
	return k == EventSucceeded || k == EventFailed
}

// Event is one ephemeral progress update for an Item.
type Event struct {
	ID        string
	Label     string
	Kind      EventKind
	Status    string
	Category  string
	Timestamp time.Time
}
