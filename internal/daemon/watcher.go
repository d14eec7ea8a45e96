package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"spool/internal/logging"
)

// startWatcher wires an fsnotify watcher on the watch directory to the run
// trigger. Events are debounced so a batch of file copies produces one run
// after the configured quiet period.
func (d *Daemon) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(d.cfg.Paths.WatchDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %q: %w", d.cfg.Paths.WatchDir, err)
	}

	debounce := time.Duration(d.cfg.Workflow.WatchDebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = time.Second
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				// Restart the quiet period on every relevant event.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			case <-timer.C:
				d.requestRun("watch")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if err != nil {
					d.logger.Warn("watch error", logging.Error(err))
				}
			}
		}
	}()

	d.logger.Info("watching for new files",
		logging.String("watch_dir", d.cfg.Paths.WatchDir),
		logging.Duration("debounce", debounce),
	)
	return nil
}
