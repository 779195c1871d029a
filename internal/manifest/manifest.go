package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Entry is one installer registration in the manifest document. Priority is
// a dense 1-based integer matching on-disk order; the downstream installer
// executes entries in ascending Priority.
type Entry struct {
	Priority          int    `json:"Priority"`
	Name              string `json:"Name"`
	CommandLine       string `json:"CommandLine"`
	Arguments         string `json:"Arguments"`
	DependencyFor     string `json:"DependencyFor,omitempty"`
	PackageIdentifier string `json:"PackageIdentifier,omitempty"`
}

// identityKey returns the de-duplication key: the package identifier when
// present, otherwise the significant fields joined.
func (e Entry) identityKey() string {
	if id := strings.TrimSpace(e.PackageIdentifier); id != "" {
		return "id:" + id
	}
	return strings.Join([]string{"fields", e.Name, e.CommandLine, e.Arguments, e.DependencyFor}, "\x00")
}

// document is the in-memory manifest with helpers shared by the store
// operations. Entries keep their slice order; Priority mirrors it.
type document struct {
	entries []Entry
}

func parseDocument(data []byte) (*document, error) {
	doc := &document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc.entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return doc, nil
}

func (d *document) marshal() ([]byte, error) {
	entries := d.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// contains reports whether an entry with the same identity already exists.
func (d *document) contains(entry Entry) bool {
	key := entry.identityKey()
	for _, existing := range d.entries {
		if existing.identityKey() == key {
			return true
		}
	}
	return false
}

// append adds the entry at the end with the next dense priority.
func (d *document) append(entry Entry) {
	entry.Priority = len(d.entries) + 1
	d.entries = append(d.entries, entry)
}

// renumber rewrites priorities to the dense 1..N sequence in slice order.
func (d *document) renumber() {
	for i := range d.entries {
		d.entries[i].Priority = i + 1
	}
}

// reorder sorts entries by the caller's key (unknown entries last, ties by
// original position) and then pulls every entry that is a DependencyFor of
// another entry immediately before that entry.
func (d *document) reorder(keyFn func(Entry) (int, bool)) {
	type ranked struct {
		entry Entry
		key   int
		known bool
		pos   int
	}
	rankedEntries := make([]ranked, len(d.entries))
	for i, entry := range d.entries {
		key, known := keyFn(entry)
		rankedEntries[i] = ranked{entry: entry, key: key, known: known, pos: i}
	}
	sort.SliceStable(rankedEntries, func(a, b int) bool {
		ra, rb := rankedEntries[a], rankedEntries[b]
		if ra.known != rb.known {
			return ra.known
		}
		if !ra.known {
			return ra.pos < rb.pos
		}
		if ra.key != rb.key {
			return ra.key < rb.key
		}
		return ra.pos < rb.pos
	})

	sorted := make([]Entry, len(rankedEntries))
	for i, r := range rankedEntries {
		sorted[i] = r.entry
	}
	d.entries = placeDependencies(sorted)
	d.renumber()
}

// placeDependencies moves entries whose DependencyFor names another present
// entry immediately before that entry, preserving their relative order.
func placeDependencies(entries []Entry) []Entry {
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name] = struct{}{}
	}

	deps := make(map[string][]Entry)
	rest := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		target := strings.TrimSpace(entry.DependencyFor)
		if target != "" && target != entry.Name {
			if _, present := names[target]; present {
				deps[target] = append(deps[target], entry)
				continue
			}
		}
		rest = append(rest, entry)
	}
	if len(deps) == 0 {
		return entries
	}

	out := make([]Entry, 0, len(entries))
	for _, entry := range rest {
		out = append(out, deps[entry.Name]...)
		out = append(out, entry)
	}
	return out
}

func sameOrder(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
