package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"
	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/pipeline"
	"spool/internal/queue"
)

// Daemon coordinates scheduled pipeline runs and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	store  queue.Store
	runner *pipeline.Runner
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	cron    *cron.Cron
	trigger chan string

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	lastRun *pipeline.Summary
	lastErr error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        queue.HealthSummary
	StorePath    string
	LockFilePath string
	LastRun      *pipeline.Summary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store queue.Store, runner *pipeline.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, runner, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "spoold.lock")
	return &Daemon{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		trigger:  make(chan string, 1),
	}, nil
}

// Start acquires the daemon lock and launches the run loop, the cron
// schedule, and the watch-directory trigger. An immediate first run is
// queued so a restart picks up pending work without waiting for the
// schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spool daemon instance is already running")
	}

	location, err := time.LoadLocation(d.cfg.Scheduling.Timezone)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("load timezone: %w", err)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	d.cron = cron.New(cron.WithLocation(location))
	if _, err := d.cron.AddFunc(d.cfg.Workflow.RunSchedule, func() { d.requestRun("schedule") }); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return fmt.Errorf("register run schedule %q: %w", d.cfg.Workflow.RunSchedule, err)
	}

	d.wg.Add(1)
	go d.runLoop(d.ctx)

	// Watcher failure degrades to cron-only operation.
	if err := d.startWatcher(d.ctx); err != nil {
		d.logger.Warn("watch directory trigger unavailable",
			logging.Error(err),
			logging.String("watch_dir", d.cfg.Paths.WatchDir),
		)
	}

	d.cron.Start()
	d.running.Store(true)
	d.requestRun("startup")

	if _, err := sdnotify.SdNotify(false, sdnotify.SdNotifyReady); err != nil {
		d.logger.Debug("sd_notify unavailable", logging.Error(err))
	}

	d.logger.Info("spool daemon started",
		logging.String("lock", d.lockPath),
		logging.String("run_schedule", d.cfg.Workflow.RunSchedule),
	)
	return nil
}

// Stop halts triggers, waits for an in-flight run to finish, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if _, err := sdnotify.SdNotify(false, sdnotify.SdNotifyStopping); err != nil {
		d.logger.Debug("sd_notify unavailable", logging.Error(err))
	}

	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("spool daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// requestRun queues a run unless one is already waiting. Runs execute one at
// a time; a trigger that arrives while the queue slot is full is dropped, not
// stacked.
func (d *Daemon) requestRun(reason string) {
	select {
	case d.trigger <- reason:
	default:
		d.logger.Debug("run already queued, trigger dropped", logging.String("reason", reason))
	}
}

func (d *Daemon) runLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-d.trigger:
			d.executeRun(ctx, reason)
		}
	}
}

func (d *Daemon) executeRun(ctx context.Context, reason string) {
	d.logger.Info("run triggered",
		logging.String(logging.FieldEventType, "run_triggered"),
		logging.String("reason", reason),
	)

	summary, err := d.runner.Run(ctx)

	d.mu.Lock()
	d.lastRun = &summary
	d.lastErr = err
	d.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		d.logger.Error("run failed",
			logging.String(logging.FieldEventType, "run_failed"),
			logging.String(logging.FieldRunID, summary.RunID),
			logging.Error(err),
		)
	}
}

// RunOnce executes a single pipeline run through the daemon's serialization
// guard. Used by the CLI's run command when no daemon holds the lock.
func (d *Daemon) RunOnce(ctx context.Context) (pipeline.Summary, error) {
	return d.runner.Run(ctx)
}

// LastRun returns the most recent run summary and run error, if any.
func (d *Daemon) LastRun() (*pipeline.Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRun, d.lastErr
}

// Status returns current daemon diagnostics.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("queue stats: %w", err)
	}
	lastRun, _ := d.LastRun()
	return Status{
		Running:      d.running.Load(),
		Queue:        queue.Summarize(stats),
		StorePath:    d.cfg.StorePath(),
		LockFilePath: d.lockPath,
		LastRun:      lastRun,
	}, nil
}

// TestNotification sends a test message using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
