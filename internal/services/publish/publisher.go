package publish

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/textutil"
)

// Library copies processed files into a dated directory tree under the
// configured library root and returns a generated external id. It stands in
// for a remote hosting upload while keeping the same contract.
type Library struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// NewLibrary constructs the library publisher from configuration.
func NewLibrary(cfg *config.Config, logger *slog.Logger) *Library {
	return &Library{
		root:   cfg.Paths.LibraryDir,
		logger: logging.NewComponentLogger(logger, "publish"),
		now:    time.Now,
	}
}

// Publish places the processed file at <library>/YYYY/MM/DD/<name> and
// returns the external id recorded on the item. An existing file at the
// destination never gets overwritten; the copy takes a numbered variant.
func (l *Library) Publish(ctx context.Context, item *queue.Item, processedPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(l.root) == "" {
		return "", services.Wrap(services.ErrConfiguration, "publish", "prepare", "library_dir is not set", nil)
	}
	if strings.TrimSpace(processedPath) == "" {
		return "", services.Wrap(services.ErrValidation, "publish", "prepare", "no processed file for item", nil)
	}
	if _, err := os.Stat(processedPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "publish", "prepare", "processed file missing", err)
		}
		return "", services.Wrap(services.ErrTransient, "publish", "prepare", "stat processed file", err)
	}

	day := l.now().UTC()
	destDir := filepath.Join(l.root, day.Format("2006"), day.Format("01"), day.Format("02"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "copy", "create library directory", err)
	}

	baseName := textutil.FileName(filepath.Base(processedPath))
	if baseName == "" {
		baseName = item.Name
	}
	dest := fileutil.UniquePath(filepath.Join(destDir, baseName))
	if err := fileutil.CopyFileVerified(processedPath, dest); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "copy", "copy into library", err)
	}

	externalID := "lib-" + uuid.NewString()
	l.logger.Info("published item to library",
		logging.String(logging.FieldItem, item.Name),
		logging.String("destination", dest),
		logging.String("external_id", externalID),
	)
	return externalID, nil
}

// Passthrough is the default transformer: it performs no processing and hands
// the source file straight to the publisher.
type Passthrough struct{}

// Transform returns the item's source path unchanged after checking the file
// still exists.
func (Passthrough) Transform(ctx context.Context, item *queue.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if item == nil || strings.TrimSpace(item.SourcePath) == "" {
		return "", services.Wrap(services.ErrValidation, "transform", "prepare", "item has no source path", nil)
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "transform", "prepare", "source file missing", err)
		}
		return "", services.Wrap(services.ErrTransient, "transform", "prepare", "stat source file", err)
	}
	return item.SourcePath, nil
}
