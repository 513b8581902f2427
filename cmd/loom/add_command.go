package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/jobs"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var payloadJSON string
	var priority int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "add <type>",
		Short: "Enqueue a single job",
		Long: "Enqueue a single job of the given type. Valid types: " +
			strings.Join(typeNames(), ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			view, err := api.AddJob(cmd.Context(), api.AddJobRequest{
				Config:      cfg,
				Type:        args[0],
				PayloadJSON: payloadJSON,
				Priority:    priority,
				Delay:       delay,
			})
			if err != nil {
				return err
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, view)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s job %d (status %s)\n", view.Type, view.ID, view.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&payloadJSON, "payload", "p", "", "Job payload as a JSON object")
	cmd.Flags().IntVar(&priority, "priority", 0, "Scheduling priority (higher runs first)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Hold the job for this long before it becomes eligible")
	return cmd
}

func typeNames() []string {
	types := jobs.AllTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}
