package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/api"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	var priority int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "pipeline <topic>",
		Short: "Schedule a full pipeline run for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids, err := api.SchedulePipeline(cmd.Context(), api.SchedulePipelineRequest{
				Config:   cfg,
				Topic:    args[0],
				Priority: priority,
				Delay:    delay,
			})
			if err != nil {
				return err
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, map[string]any{"jobIds": ids})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled pipeline for %q: %d jobs (root %d)\n", args[0], len(ids), ids[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&priority, "priority", 0, "Scheduling priority for every job in the flow")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Hold the first stage for this long before it becomes eligible")
	return cmd
}
