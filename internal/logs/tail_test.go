package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"spool/internal/logs"
)

func writeLog(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
}

func TestTailEmitsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), logs.FileName)
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	var out strings.Builder
	if err := logs.Tail(context.Background(), path, logs.Options{Lines: 2}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if out.String() != "three\nfour\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestTailMoreLinesThanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), logs.FileName)
	writeLog(t, path, "only\n")

	var out strings.Builder
	if err := logs.Tail(context.Background(), path, logs.Options{Lines: 50}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if out.String() != "only\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), logs.FileName)

	var out strings.Builder
	if err := logs.Tail(context.Background(), path, logs.Options{Lines: 10}, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

// syncWriter lets the follow goroutine and the test assert concurrently.
type syncWriter struct {
	mu sync.Mutex
	b  strings.Builder
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.String()
}

func TestTailFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), logs.FileName)
	writeLog(t, path, "first\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncWriter{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.Options{Lines: 1, Follow: true, PollInterval: 10 * time.Millisecond}, out)
	}()

	waitFor(t, func() bool { return strings.Contains(out.String(), "first") })

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	waitFor(t, func() bool { return strings.Contains(out.String(), "second") })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if got := out.String(); got != "first\nsecond\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTailFollowHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), logs.FileName)
	writeLog(t, path, "old line\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncWriter{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.Options{Lines: 1, Follow: true, PollInterval: 10 * time.Millisecond}, out)
	}()

	// Wait for the initial read so the follow offset points at the old file
	// end before rotating.
	waitFor(t, func() bool { return strings.Contains(out.String(), "old line") })

	// Rotate: replace the file with a shorter one.
	writeLog(t, path, "fresh\n")
	waitFor(t, func() bool { return strings.Contains(out.String(), "fresh") })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
