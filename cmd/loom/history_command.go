package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			views, err := api.QueueHistory(cmd.Context(), cfg, limit)
			if err != nil {
				return err
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{
					strconv.FormatInt(view.ID, 10),
					view.Type,
					view.Status,
					fmt.Sprintf("%d/%d", view.Attempts, view.MaxAttempts),
					formatTimestamp(&view.CreatedAt),
					formatTimestamp(view.FinishedAt),
					truncateText(view.FailedReason, 48),
				})
			}
			table := renderTable(
				[]tableColumn{
					{header: "ID", numeric: true},
					{header: "Type"},
					{header: "Status"},
					{header: "Attempts", numeric: true},
					{header: "Created"},
					{header: "Finished"},
					{header: "Reason"},
				},
				rows,
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	return cmd
}
