package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileName is the log file the daemon and CLI write beneath the configured
// log directory.
const FileName = "spool.log"

// defaultPollInterval is how often follow mode checks the file for growth.
const defaultPollInterval = 500 * time.Millisecond

// Options controls how much of the log file Tail emits and whether it keeps
// streaming afterwards.
type Options struct {
	// Lines is the number of trailing lines to emit initially. Zero or
	// negative emits nothing before following.
	Lines int
	// Follow keeps Tail running, emitting lines appended to the file, until
	// the context is cancelled.
	Follow bool
	// PollInterval overrides the follow-mode poll cadence. Zero uses the
	// default.
	PollInterval time.Duration
}

// PathFor returns the log file path beneath logDir.
func PathFor(logDir string) string {
	return filepath.Join(logDir, FileName)
}

// Tail writes the last Options.Lines lines of the file at path to w. With
// Follow set it then polls the file and writes lines as they are appended,
// returning nil once ctx is cancelled. Truncation (log rotation) resets the
// read position to the start of the new file.
func Tail(ctx context.Context, path string, opts Options, w io.Writer) error {
	offset, err := writeLastLines(path, opts.Lines, w)
	if err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			offset, err = writeFrom(path, offset, w)
			if err != nil {
				return err
			}
		}
	}
}

// writeLastLines emits the trailing n lines of the file and returns the
// offset of the file end. A missing file emits nothing and returns offset 0
// so follow mode picks the file up when it appears.
func writeLastLines(path string, n int, w io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var ring []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		ring = append(ring, scanner.Text())
		if len(ring) > n {
			ring = ring[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	for _, line := range ring {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return 0, err
		}
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	return info.Size(), nil
}

// writeFrom emits complete lines appended past offset and returns the new
// offset. It tolerates the file disappearing and detects truncation.
func writeFrom(path string, offset int64, w io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		// Rotated or truncated; start over from the top.
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		offset += int64(len(scanner.Bytes())) + 1
		if _, err := fmt.Fprintln(w, scanner.Text()); err != nil {
			return offset, err
		}
	}
	if err := scanner.Err(); err != nil {
		return offset, fmt.Errorf("read log file: %w", err)
	}
	return offset, nil
}
