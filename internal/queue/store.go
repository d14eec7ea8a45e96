package queue

import (
	"context"
	"fmt"
	"time"

	"spool/internal/config"
)

// Store is the persistence contract the pipeline drives items through.
// Implementations must be safe for use from a single orchestrator run at a
// time; the daemon serializes runs externally.
type Store interface {
	// GetByName returns the item with the given natural key, or nil.
	GetByName(ctx context.Context, name string) (*Item, error)
	// GetByFingerprint returns the first item with a matching content
	// fingerprint, or nil.
	GetByFingerprint(ctx context.Context, fingerprint string) (*Item, error)
	// Upsert inserts a new record keyed by item.Name or merges non-zero
	// fields over the existing record. It returns the stored item.
	Upsert(ctx context.Context, item *Item) (*Item, error)

	// SetProcessing transitions the named item to processing.
	SetProcessing(ctx context.Context, name string) error
	// SetUploaded records a successful publish: external id, payload,
	// completion time, cleared error.
	SetUploaded(ctx context.Context, name, externalID, payload string) error
	// SetFailed records a failed attempt and increments the retry counter.
	SetFailed(ctx context.Context, name, message string) error

	// ListPending returns items in {new, scheduled, failed} ordered by
	// ScheduledAt (nils first) then CreatedAt.
	ListPending(ctx context.Context) ([]*Item, error)
	// ListReady returns items in {scheduled, failed} whose slot has
	// arrived by now (nil ScheduledAt counts as arrived), same ordering.
	ListReady(ctx context.Context, now time.Time) ([]*Item, error)
	// ListRecent returns up to limit items by most recent update.
	ListRecent(ctx context.Context, limit int) ([]*Item, error)
	// List returns items filtered by status set, or all items when no
	// status is provided, ordered by creation time.
	List(ctx context.Context, statuses ...Status) ([]*Item, error)

	// Stats returns a count of items grouped by status.
	Stats(ctx context.Context) (map[Status]int, error)
	// Retry moves the named failed items (or all failed items when no
	// names are given) back to scheduled with no slot, making them
	// immediately eligible. Retry counters are left untouched.
	Retry(ctx context.Context, names ...string) (int64, error)
	// ClearUploaded removes published items; operator retention only.
	ClearUploaded(ctx context.Context) (int64, error)
	// ClearFailed removes failed items; operator retention only.
	ClearFailed(ctx context.Context) (int64, error)

	Close() error
}

// Open initializes the store backend selected by the configuration.
func Open(cfg *config.Config) (Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	path := cfg.StorePath()
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		return openSQLite(path)
	case config.DriverJSON:
		return openFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Store.Driver)
	}
}
