package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"spool/internal/logging"
)

// mediaExtensions are the file types the scanner recognizes as candidates.
var mediaExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".mov":  {},
	".avi":  {},
	".webm": {},
}

// Candidate describes one discovered media file.
type Candidate struct {
	// Name is the path relative to the watch directory, the item's
	// natural key.
	Name        string
	Path        string
	Fingerprint string
	Size        int64
}

// Scanner lists candidate files beneath a watch directory.
type Scanner struct {
	dir    string
	logger *slog.Logger
}

// NewScanner constructs a scanner rooted at dir.
func NewScanner(dir string, logger *slog.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "discovery"),
	}
}

// ListCandidates walks the watch directory and returns every recognized media
// file with its content fingerprint and size, ordered by name. An absent
// watch directory yields no candidates; an unreadable one is a fault the
// caller surfaces as a run-level failure.
func (s *Scanner) ListCandidates(ctx context.Context) ([]Candidate, error) {
	if strings.TrimSpace(s.dir) == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var candidates []Candidate
	err := filepath.WalkDir(s.dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if strings.HasPrefix(name, ".") && path != s.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := mediaExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() == 0 {
			// Zero-length files are still being copied in; pick them
			// up on a later run.
			s.logger.Debug("skipping empty file", logging.String("path", path))
			return nil
		}

		fingerprint, err := Fingerprint(path)
		if err != nil {
			return err
		}

		relative, err := filepath.Rel(s.dir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		candidates = append(candidates, Candidate{
			Name:        filepath.ToSlash(relative),
			Path:        path,
			Fingerprint: fingerprint,
			Size:        info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan watch directory: %w", err)
	}

	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].Name < candidates[b].Name
	})
	return candidates, nil
}
