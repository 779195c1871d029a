// Package catalog resolves a work item to a single downloadable candidate
// when a source offers more than one matching release.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/services"
	"stockpile/internal/work"
)

// Candidate is one downloadable release offered by a source.
type Candidate struct {
	Name       string
	Version    string
	Variant    string
	URL        string
	ReleasedAt time.Time
}

// Source lists the candidates a backend offers for an item. Implementations
// query a mirror index, a vendor API, or a static catalog file.
type Source interface {
	Candidates(ctx context.Context, item work.Item) ([]Candidate, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, item work.Item) ([]Candidate, error)

func (f SourceFunc) Candidates(ctx context.Context, item work.Item) ([]Candidate, error) {
	return f(ctx, item)
}

// ListedCandidates is a Source backed by the candidate declarations carried
// on the work item itself.
func ListedCandidates() Source {
	return SourceFunc(func(_ context.Context, item work.Item) ([]Candidate, error) {
		candidates := make([]Candidate, 0, len(item.Candidates))
		for _, spec := range item.Candidates {
			candidates = append(candidates, Candidate{
				Name:       spec.Name,
				Version:    spec.Version,
				Variant:    spec.Variant,
				URL:        spec.Locator,
				ReleasedAt: spec.ReleasedAt,
			})
		}
		return candidates, nil
	})
}

// ResolveItems runs candidate selection over a work list before dispatch.
// Items without candidates pass through untouched. A resolved candidate's
// locator is placed ahead of the item's other sources; an item whose
// selection fails becomes a failed result instead of being dispatched.
func ResolveItems(ctx context.Context, source Source, items []work.Item, policy string) (ready []work.Item, failed []work.Result) {
	for _, item := range items {
		if len(item.Candidates) == 0 {
			ready = append(ready, item)
			continue
		}
		candidate, err := Resolve(ctx, source, item, policy)
		if err != nil {
			failed = append(failed, work.Result{
				ID:           item.ID,
				ErrorMessage: fmt.Sprintf("candidate selection: %v", err),
			})
			continue
		}
		item.Sources = append([]string{candidate.URL}, item.Sources...)
		ready = append(ready, item)
	}
	return ready, failed
}

// Select applies the configured ambiguity policy to a candidate list. The
// list is filtered to the item's variant first when one is requested. No
// matching candidate is a terminal condition: retrying cannot make a
// release appear.
func Select(item work.Item, candidates []Candidate, policy string) (Candidate, error) {
	filtered := candidates
	if variant := strings.TrimSpace(item.Variant); variant != "" {
		filtered = nil
		for _, candidate := range candidates {
			if strings.EqualFold(candidate.Variant, variant) {
				filtered = append(filtered, candidate)
			}
		}
	}

	if len(filtered) == 0 {
		return Candidate{}, services.Wrap(services.ErrTerminal, "catalog", "select",
			fmt.Sprintf("no candidate matches %s", item.DisplayLabel()), nil)
	}
	if len(filtered) == 1 {
		return filtered[0], nil
	}

	switch policy {
	case config.SelectionFirst:
		return filtered[0], nil
	case config.SelectionStrict:
		return Candidate{}, services.Wrap(services.ErrTerminal, "catalog", "select",
			fmt.Sprintf("%d candidates match %s under strict selection", len(filtered), item.DisplayLabel()), nil)
	case config.SelectionLatest, "":
		return newest(filtered), nil
	default:
		return Candidate{}, services.Wrap(services.ErrTerminal, "catalog", "select",
			fmt.Sprintf("unknown selection policy %q", policy), nil)
	}
}

// Resolve lists candidates from the source and selects one. Source errors
// pass through unchanged so their classification is preserved.
func Resolve(ctx context.Context, source Source, item work.Item, policy string) (Candidate, error) {
	candidates, err := source.Candidates(ctx, item)
	if err != nil {
		return Candidate{}, err
	}
	return Select(item, candidates, policy)
}

// newest picks the candidate with the latest release timestamp. Ties fall
// back to list order so selection stays deterministic.
func newest(candidates []Candidate) Candidate {
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.ReleasedAt.After(best.ReleasedAt) {
			best = candidate
		}
	}
	return best
}
