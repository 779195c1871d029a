package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockpile/internal/history"
	"stockpile/internal/textutil"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent retrieval runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return renderRunResults(cmd, store, args[0])
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				duration := "-"
				if run.Finished {
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					duration,
					fmt.Sprintf("%d", run.ItemCount),
					fmt.Sprintf("%d", run.Succeeded),
					fmt.Sprintf("%d", run.Failed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Duration", "Items", "OK", "Failed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func renderRunResults(cmd *cobra.Command, store *history.Store, runID string) error {
	records, err := store.RunResults(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("load run results: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "No results recorded for run %s\n", runID)
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		detail := record.Method
		if !record.Success {
			detail = record.ErrorMessage
		}
		rows = append(rows, []string{
			record.ItemID,
			textutil.Ternary(record.Success, "ok", "failed"),
			detail,
			fmt.Sprintf("%d", record.Attempts),
			record.Duration.Round(time.Millisecond).String(),
			formatBytes(record.BytesTransferred),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Item", "Status", "Detail", "Attempts", "Duration", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}
