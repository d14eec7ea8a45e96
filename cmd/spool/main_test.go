package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
)

// writeTestConfig writes a config file pointing every path at temp
// directories and returns its location.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "spool.toml")
	contents := fmt.Sprintf(`[paths]
watch_dir = %q
library_dir = %q
staging_dir = %q
log_dir = %q

[store]
driver = "json"
`,
		filepath.Join(base, "incoming"),
		filepath.Join(base, "library"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("spool %s: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "queue", "list")
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueStatusCountsItems(t *testing.T) {
	configPath := writeTestConfig(t)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.mp4", "b.mp4"} {
		if _, err := store.Upsert(context.Background(), &queue.Item{Name: name, Status: queue.StatusFailed}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	out := runCommand(t, "--config", configPath, "queue", "status")
	if !strings.Contains(out, "failed") || !strings.Contains(out, "2") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueRetryReportsCount(t *testing.T) {
	configPath := writeTestConfig(t)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Upsert(context.Background(), &queue.Item{Name: "a.mp4", Status: queue.StatusFailed}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	out := runCommand(t, "--config", configPath, "queue", "retry")
	if !strings.Contains(out, "Marked 1 item(s) for retry") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	configPath := writeTestConfig(t)
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", configPath, "queue", "list", "--status", "bogus"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out := runCommand(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse.
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected init over an existing file to fail")
	}
}

func TestRunCommandExecutesRun(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "run")
	if !strings.Contains(out, "scanned:   0") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "status")
	if !strings.Contains(out, "Daemon running:  no") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "Watch directory:") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLogsCommandPrintsTail(t *testing.T) {
	configPath := writeTestConfig(t)
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "spool.log")
	if err := os.WriteFile(logPath, []byte("alpha\nbeta\ngamma\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runCommand(t, "--config", configPath, "logs", "-n", "2")
	if out != "beta\ngamma\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLogsCommandMissingFile(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "logs")
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}
