package main

import (
	"github.com/spf13/cobra"

	"spool/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Long:  "Print the tail of the spool log file, optionally following new lines as they are written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := logs.Options{
				Lines:  lines,
				Follow: follow,
			}
			return logs.Tail(cmd.Context(), logs.PathFor(cfg.Paths.LogDir), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming appended log lines")

	return cmd
}
