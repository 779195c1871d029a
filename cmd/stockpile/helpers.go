package main

import (
	"fmt"
	"log/slog"

	"stockpile/internal/config"
	"stockpile/internal/methods"
)

func buildChain(cfg *config.Config, logger *slog.Logger) ([]methods.Strategy, error) {
	chain, err := methods.NewChain(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build method chain: %w", err)
	}
	return chain, nil
}
