package main

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				health := queue.Summarize(stats)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon running:  %s\n", yesNo(daemonRunning(cfg)))
				fmt.Fprintf(out, "Store:           %s (%s)\n", cfg.StorePath(), cfg.Store.Driver)
				fmt.Fprintf(out, "Watch directory: %s\n", cfg.Paths.WatchDir)
				fmt.Fprintf(out, "Library:         %s\n", cfg.Paths.LibraryDir)
				fmt.Fprintln(out)

				rows := [][]string{
					{"total", itoa(health.Total)},
					{"new", itoa(health.New)},
					{"scheduled", itoa(health.Scheduled)},
					{"processing", itoa(health.Processing)},
					{"uploaded", itoa(health.Uploaded)},
					{"failed", itoa(health.Failed)},
				}
				table := renderTable([]string{"Items", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

// daemonRunning probes the daemon lock without holding it.
func daemonRunning(cfg *config.Config) bool {
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "spoold.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}
