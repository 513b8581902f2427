package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			health, err := api.QueueHealth(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, health)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Queue Health", colorize) {
				fmt.Fprintln(out, line)
			}

			rows := [][]string{
				{"Waiting", strconv.Itoa(health.Waiting)},
				{"Delayed", strconv.Itoa(health.Delayed)},
				{"Active", strconv.Itoa(health.Active)},
				{"Completed", strconv.Itoa(health.Completed)},
				{"Failed", strconv.Itoa(health.Failed)},
				{"Total", strconv.Itoa(health.Total)},
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{{header: "Status"}, {header: "Count", numeric: true}},
				rows,
			))

			kind := statusOK
			message := "queue healthy"
			if health.Failed > 0 {
				kind = statusWarn
				message = fmt.Sprintf("%d failed jobs (run 'loom queue retry')", health.Failed)
			}
			fmt.Fprintln(out, renderStatusLine("Queue", kind, message, colorize))

			lockPath := daemon.DefaultLockPath(cfg)
			if _, err := os.Stat(lockPath); err == nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "lock file present", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
			}
			return nil
		},
	}
}
