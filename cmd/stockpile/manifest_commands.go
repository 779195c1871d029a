package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockpile/internal/config"
	"stockpile/internal/manifest"
	"stockpile/internal/work"
)

func newManifestCommand(cmdCtx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect and maintain the shared install manifest",
	}

	manifestCmd.AddCommand(newManifestShowCommand(cmdCtx))
	manifestCmd.AddCommand(newManifestReorderCommand(cmdCtx))

	return manifestCmd
}

func openManifestStore(cmdCtx *commandContext) (*manifest.Store, *config.Config, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := manifest.NewStore(
		cfg.Paths.ManifestPath,
		cfg.Paths.LockDir,
		time.Duration(cfg.Workflow.LockTimeoutSeconds)*time.Second,
		cmdCtx.ensureLogger(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest store: %w", err)
	}
	return store, cfg, nil
}

func newManifestShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List manifest entries in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openManifestStore(cmdCtx)
			if err != nil {
				return err
			}

			entries, err := store.Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Manifest is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					fmt.Sprintf("%d", entry.Priority),
					entry.Name,
					entry.CommandLine,
					entry.DependencyFor,
					entry.PackageIdentifier,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Priority", "Name", "Command", "Dependency For", "Package ID"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newManifestReorderCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <work-list.toml>",
		Short: "Reorder manifest entries to match a work list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openManifestStore(cmdCtx)
			if err != nil {
				return err
			}
			items, err := work.LoadList(args[0])
			if err != nil {
				return fmt.Errorf("load work list: %w", err)
			}

			registrar := manifest.NewRegistrar(store)
			if err := registrar.Finalize(cmd.Context(), items); err != nil {
				return fmt.Errorf("reorder manifest: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Manifest reordered to match work list")
			return nil
		},
	}
}
