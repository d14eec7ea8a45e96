package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/pipeline"
	"spool/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store queue.Store) error {
				// Same lock file as the daemon: a run must never overlap
				// with an in-flight daemon run.
				lock := flock.New(filepath.Join(cfg.Paths.LogDir, "spoold.lock"))
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire run lock: %w", err)
				}
				if !ok {
					return errors.New("a spool daemon is running; it already executes runs on its schedule")
				}
				defer lock.Unlock() //nolint:errcheck

				logger, err := logging.NewForPaths(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				runner, err := pipeline.NewRunner(cfg, store, logger)
				if err != nil {
					return err
				}

				summary, err := runner.Run(cmd.Context())
				printRunSummary(cmd, summary)
				return err
			})
		},
	}
}

func printRunSummary(cmd *cobra.Command, summary pipeline.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished in %s\n", summary.RunID, summary.Duration.Round(summaryRounding))
	fmt.Fprintf(out, "  scanned:   %d\n", summary.Scanned)
	fmt.Fprintf(out, "  scheduled: %d\n", summary.Scheduled)
	fmt.Fprintf(out, "  completed: %d\n", summary.Completed)
	fmt.Fprintf(out, "  failed:    %d\n", summary.Failed)
	for _, message := range summary.Errors {
		fmt.Fprintf(out, "  error: %s\n", message)
	}
}
