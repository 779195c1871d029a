package methods

import (
	"context"
	"fmt"
	"log/slog"

	"stockpile/internal/config"
	"stockpile/internal/work"
)

// Strategy retrieves one work item's payload to its destination. Fetch
// returns the number of bytes written. Errors must carry one of the
// services markers so the executor can classify them.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, item work.Item) (int64, error)
}

// NewChain builds the ordered strategy list named by the configuration.
func NewChain(cfg *config.Config, logger *slog.Logger) ([]Strategy, error) {
	chain := make([]Strategy, 0, len(cfg.Workflow.Methods))
	for _, name := range cfg.Workflow.Methods {
		switch name {
		case config.MethodHTTPFetch:
			chain = append(chain, NewHTTPFetch(cfg, logger))
		case config.MethodCacheCopy:
			chain = append(chain, NewCacheCopy(cfg.Paths.CacheDir, logger))
		case config.MethodShareCopy:
			chain = append(chain, NewShareCopy(cfg.Paths.ShareDir, logger))
		default:
			return nil, fmt.Errorf("unknown retrieval method %q", name)
		}
	}
	return chain, nil
}
