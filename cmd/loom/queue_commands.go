package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage queued jobs",
	}

	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Requeue failed jobs",
		Long: "Requeue failed jobs so workers pick them up again. With no " +
			"arguments every failed job is retried. Jobs rejected by a " +
			"reviewer are never retried.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			updated, err := api.RetryFailed(cmd.Context(), cfg, ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", updated)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed jobs (or everything with --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := api.ClearQueue(cmd.Context(), cfg, clearAll)
			if err != nil {
				return err
			}
			if clearAll {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", removed)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed jobs\n", removed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every job regardless of status")
	return cmd
}
