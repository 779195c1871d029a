package work

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// List is the on-disk work-list document handed to `stockpile run`.
type List struct {
	Items []Item `toml:"item"`
}

// LoadList parses and validates a TOML work-list file.
func LoadList(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read work list: %w", err)
	}

	var list List
	if err := toml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse work list: %w", err)
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("work list %s contains no items", path)
	}

	seen := make(map[string]struct{}, len(list.Items))
	for i := range list.Items {
		item := &list.Items[i]
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, fmt.Errorf("work list item %d is missing an id", i+1)
		}
		if _, ok := seen[item.ID]; ok {
			return nil, fmt.Errorf("work list item id %q appears more than once", item.ID)
		}
		seen[item.ID] = struct{}{}
		if strings.TrimSpace(item.Destination) == "" {
			return nil, fmt.Errorf("work list item %q is missing a destination", item.ID)
		}
		if len(item.Sources) == 0 && len(item.Candidates) == 0 {
			return nil, fmt.Errorf("work list item %q has no sources", item.ID)
		}
		for j, candidate := range item.Candidates {
			if strings.TrimSpace(candidate.Locator) == "" {
				return nil, fmt.Errorf("work list item %q candidate %d is missing a locator", item.ID, j+1)
			}
		}
		if item.Installer != nil && strings.TrimSpace(item.Installer.Name) == "" {
			return nil, fmt.Errorf("work list item %q has an installer without a name", item.ID)
		}
	}
	return list.Items, nil
}
