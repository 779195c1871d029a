package manifest

import (
	"context"

	"stockpile/internal/work"
)

// Registrar adapts a Store to the pool's registration hooks: successful
// items with installers are appended as they finish, and the final pass
// restores submission order for the installer entries.
type Registrar struct {
	store *Store
}

func NewRegistrar(store *Store) *Registrar {
	return &Registrar{store: store}
}

// EntryFor maps an item's installer metadata to a manifest entry. The
// priority is assigned by the store on append.
func EntryFor(item work.Item) (Entry, bool) {
	if item.Installer == nil {
		return Entry{}, false
	}
	spec := *item.Installer
	return Entry{
		Name:              spec.Name,
		CommandLine:       spec.CommandLine,
		Arguments:         spec.Arguments,
		DependencyFor:     spec.DependencyFor,
		PackageIdentifier: spec.PackageIdentifier,
	}, true
}

// Register appends the item's installer entry. Items without installers
// are not manifest-managed and are skipped.
func (r *Registrar) Register(ctx context.Context, item work.Item) error {
	entry, ok := EntryFor(item)
	if !ok {
		return nil
	}
	_, err := r.store.AppendEntry(ctx, entry)
	return err
}

// Finalize reorders the manifest so entries follow the submission order of
// items. Entries registered by other processes keep their relative order
// after ours.
func (r *Registrar) Finalize(ctx context.Context, items []work.Item) error {
	rank := make(map[string]int, len(items))
	next := 0
	for _, item := range items {
		entry, ok := EntryFor(item)
		if !ok {
			continue
		}
		if _, seen := rank[entry.identityKey()]; !seen {
			rank[entry.identityKey()] = next
			next++
		}
	}
	if len(rank) == 0 {
		return nil
	}
	_, err := r.store.ReorderToMatch(ctx, func(entry Entry) (int, bool) {
		key, ok := rank[entry.identityKey()]
		return key, ok
	})
	return err
}
