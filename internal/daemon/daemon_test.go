package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spool/internal/daemon"
	"spool/internal/logging"
	"spool/internal/pipeline"
	"spool/internal/queue"
	"spool/internal/testsupport"
)

func newDaemon(t *testing.T) (*daemon.Daemon, queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner, err := pipeline.NewRunner(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	d, err := daemon.New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store, cfg.Paths.WatchDir
}

func TestDaemonStartStop(t *testing.T) {
	d, _, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	first, _, _ := newDaemon(t)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	if err := first.Start(ctx); err == nil {
		t.Fatal("expected second start of the same daemon to fail")
	}
}

func TestDaemonStartupRunProcessesWatchDir(t *testing.T) {
	d, store, watchDir := newDaemon(t)
	testsupport.WriteFile(t, filepath.Join(watchDir, "clip.mp4"), []byte("clip"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		lastRun, runErr := d.LastRun()
		if runErr != nil {
			t.Fatalf("unexpected run error: %v", runErr)
		}
		if lastRun != nil {
			if lastRun.Scanned != 1 {
				t.Fatalf("unexpected last run %+v", lastRun)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("startup run never completed")
		}
		time.Sleep(25 * time.Millisecond)
	}

	item, err := store.GetByName(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if item == nil {
		t.Fatal("expected the startup run to record the file")
	}
}

func TestDaemonStatus(t *testing.T) {
	d, store, _ := newDaemon(t)
	testsupport.SeedItem(t, store, &queue.Item{Name: "clip.mp4", Status: queue.StatusFailed})

	status, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("expected stopped daemon")
	}
	if status.Queue.Failed != 1 || status.Queue.Total != 1 {
		t.Fatalf("unexpected queue health %+v", status.Queue)
	}
	if status.StorePath == "" || status.LockFilePath == "" {
		t.Fatalf("expected paths to be populated: %+v", status)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _, _ := newDaemon(t)
	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("expected no send without a configured topic")
	}
	if message == "" {
		t.Fatal("expected an explanatory message")
	}
}
