package main

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stockpile/internal/catalog"
	"stockpile/internal/executor"
	"stockpile/internal/history"
	"stockpile/internal/logging"
	"stockpile/internal/manifest"
	"stockpile/internal/notifications"
	"stockpile/internal/pool"
	"stockpile/internal/preflight"
	"stockpile/internal/services"
	"stockpile/internal/textutil"
	"stockpile/internal/work"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run <work-list.toml>",
		Short: "Retrieve every package in a work list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger := cmdCtx.ensureLogger()
			out := cmd.OutOrStdout()

			items, err := work.LoadList(args[0])
			if err != nil {
				return fmt.Errorf("load work list: %w", err)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "Work list is empty, nothing to do")
				return nil
			}

			if !skipPreflight {
				checks := preflight.RunAll(cmd.Context(), cfg)
				for _, check := range checks {
					if !check.Passed {
						fmt.Fprintf(out, "Preflight failed: %s: %s\n", check.Name, check.Detail)
					}
				}
				if !preflight.AllPassed(checks) {
					return fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
				}
			}

			runID := uuid.NewString()
			runCtx := services.WithRunID(cmd.Context(), runID)
			runLogger := logging.WithContext(runCtx, logger)

			ready, unresolved := catalog.ResolveItems(
				runCtx, catalog.ListedCandidates(), items, cfg.Workflow.SelectionPolicy)
			for _, result := range unresolved {
				runLogger.Warn("candidate selection failed",
					logging.String("item", result.ID),
					logging.String("reason", result.ErrorMessage),
				)
			}

			manifestStore, err := manifest.NewStore(
				cfg.Paths.ManifestPath,
				cfg.Paths.LockDir,
				time.Duration(cfg.Workflow.LockTimeoutSeconds)*time.Second,
				logger,
			)
			if err != nil {
				return fmt.Errorf("open manifest store: %w", err)
			}

			historyStore, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer historyStore.Close()

			chain, err := buildChain(cfg, logger)
			if err != nil {
				return err
			}
			exec := executor.New(
				chain,
				cfg.Workflow.RetryCount,
				time.Duration(cfg.Workflow.BackoffBaseSeconds)*time.Second,
				logger,
			)

			workers, err := pool.New(
				pool.Config{Workers: cfg.Workflow.Workers},
				exec,
				manifest.NewRegistrar(manifestStore),
				logger,
			)
			if err != nil {
				results := append(unresolved, pool.FailAll(ready, err)...)
				renderResults(out, orderResults(items, results))
				return err
			}

			notifier := notifications.NewService(cfg)
			startedAt := time.Now().UTC()
			if err := historyStore.StartRun(runCtx, runID, startedAt, len(items)); err != nil {
				runLogger.Warn("run history unavailable", logging.Error(err))
			}
			if err := notifier.NotifyRunStarted(runCtx, len(items)); err != nil {
				runLogger.Warn("run-start notification failed", logging.Error(err))
			}

			ui := newProgressUI(out, len(ready))
			results := workers.Run(runCtx, ready, ui.Observe)
			ui.Finish()
			results = orderResults(items, append(unresolved, results...))

			finishedAt := time.Now().UTC()
			if err := historyStore.FinishRun(runCtx, runID, finishedAt, results); err != nil {
				runLogger.Warn("run history write failed", logging.Error(err))
				if notifyErr := notifier.NotifyError(runCtx, err, "run history"); notifyErr != nil {
					runLogger.Warn("error notification failed", logging.Error(notifyErr))
				}
			}

			labels := make(map[string]string, len(items))
			for _, item := range items {
				labels[item.ID] = item.DisplayLabel()
			}
			for _, result := range results {
				if result.Success {
					continue
				}
				if err := notifier.NotifyItemFailed(runCtx, labels[result.ID], result.ErrorMessage); err != nil {
					runLogger.Warn("item-failure notification failed", logging.Error(err))
				}
			}

			succeeded, failed := tally(results)
			if err := notifier.NotifyRunCompleted(runCtx, succeeded, failed, finishedAt.Sub(startedAt)); err != nil {
				runLogger.Warn("run-complete notification failed", logging.Error(err))
			}

			renderResults(out, results)
			fmt.Fprintf(out, "Run %s: %d succeeded, %d failed in %s\n",
				runID, succeeded, failed, finishedAt.Sub(startedAt).Round(time.Second))
			if failed > 0 {
				return fmt.Errorf("%d of %d items failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before the run")
	return cmd
}

// orderResults puts results back in work-list order after pre-dispatch
// selection failures and pool results are merged.
func orderResults(items []work.Item, results []work.Result) []work.Result {
	byID := make(map[string]work.Result, len(results))
	for _, result := range results {
		byID[result.ID] = result
	}
	ordered := make([]work.Result, 0, len(results))
	for _, item := range items {
		if result, ok := byID[item.ID]; ok {
			ordered = append(ordered, result)
		}
	}
	return ordered
}

func tally(results []work.Result) (succeeded, failed int) {
	for _, result := range results {
		if result.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

func renderResults(out io.Writer, results []work.Result) {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := textutil.Ternary(result.Success, "ok", "failed")
		detail := result.Method
		if !result.Success {
			detail = result.ErrorMessage
		}
		rows = append(rows, []string{
			result.ID,
			status,
			detail,
			fmt.Sprintf("%d", result.Metrics.Attempts),
			formatBytes(result.Metrics.BytesTransferred),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Item", "Status", "Detail", "Attempts", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	case n > 0:
		return fmt.Sprintf("%d B", n)
	default:
		return "-"
	}
}
