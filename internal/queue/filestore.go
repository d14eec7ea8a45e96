package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// fileStore keeps the full item set in one JSON document. Mutations rewrite
// the document through a temp file and rename so a crash never leaves a
// half-written store behind.
type fileStore struct {
	path string

	mu  sync.Mutex
	doc fileDocument
}

type fileDocument struct {
	Version int              `json:"version"`
	NextID  int64            `json:"next_id"`
	Items   map[string]*Item `json:"items"`
}

func openFile(path string) (Store, error) {
	store := &fileStore{
		path: filepath.Clean(path),
		doc: fileDocument{
			Version: schemaVersion,
			NextID:  1,
			Items:   make(map[string]*Item),
		},
	}

	data, err := os.ReadFile(store.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return store, nil
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	}

	if len(data) == 0 {
		return store, nil
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	if doc.Version != schemaVersion {
		return nil, fmt.Errorf("%w: store has version %d, expected %d (delete the store file to recreate it)",
			ErrSchemaMismatch, doc.Version, schemaVersion)
	}
	if doc.Items == nil {
		doc.Items = make(map[string]*Item)
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	store.doc = doc
	return store, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) persist() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (s *fileStore) GetByName(_ context.Context, name string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.doc.Items[name].Clone(), nil
}

func (s *fileStore) GetByFingerprint(_ context.Context, fingerprint string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fingerprint == "" {
		return nil, nil
	}
	var found *Item
	for _, item := range s.doc.Items {
		if item.Fingerprint != fingerprint {
			continue
		}
		if found == nil || item.ID < found.ID {
			found = item
		}
	}
	return found.Clone(), nil
}

func (s *fileStore) Upsert(_ context.Context, item *Item) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item == nil || item.Name == "" {
		return nil, errors.New("upsert requires an item with a name")
	}
	now := time.Now().UTC()

	existing, ok := s.doc.Items[item.Name]
	var stored *Item
	if !ok {
		stored = item.Clone()
		stored.ID = s.doc.NextID
		s.doc.NextID++
		if stored.Status == "" {
			stored.Status = StatusNew
		}
		stored.RetryCount = 0
		stored.CreatedAt = now
	} else {
		stored = merge(existing, item)
	}
	stored.UpdatedAt = now
	s.doc.Items[stored.Name] = stored

	if err := s.persist(); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *fileStore) SetProcessing(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.doc.Items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	item.Status = StatusProcessing
	item.UpdatedAt = time.Now().UTC()
	return s.persist()
}

func (s *fileStore) SetUploaded(_ context.Context, name, externalID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.doc.Items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	now := time.Now().UTC()
	item.Status = StatusUploaded
	item.ExternalID = externalID
	if payload != "" {
		item.Payload = payload
	}
	item.CompletedAt = &now
	item.LastError = ""
	item.UpdatedAt = now
	return s.persist()
}

func (s *fileStore) SetFailed(_ context.Context, name, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.doc.Items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	item.Status = StatusFailed
	item.LastError = message
	item.RetryCount++
	item.UpdatedAt = time.Now().UTC()
	return s.persist()
}

func (s *fileStore) ListPending(_ context.Context) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.collect(func(item *Item) bool {
		switch item.Status {
		case StatusNew, StatusScheduled, StatusFailed:
			return true
		}
		return false
	})
	sortPending(items)
	return items, nil
}

func (s *fileStore) ListReady(_ context.Context, now time.Time) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.collect(func(item *Item) bool {
		return item.Ready(now)
	})
	sortPending(items)
	return items, nil
}

func (s *fileStore) ListRecent(_ context.Context, limit int) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		return nil, nil
	}
	items := s.collect(func(*Item) bool { return true })
	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].UpdatedAt.Equal(items[b].UpdatedAt) {
			return items[a].UpdatedAt.After(items[b].UpdatedAt)
		}
		return items[a].ID > items[b].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *fileStore) List(_ context.Context, statuses ...Status) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filter map[Status]struct{}
	if len(statuses) > 0 {
		filter = make(map[Status]struct{}, len(statuses))
		for _, status := range statuses {
			filter[status] = struct{}{}
		}
	}
	items := s.collect(func(item *Item) bool {
		if filter == nil {
			return true
		}
		_, ok := filter[item.Status]
		return ok
	})
	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].CreatedAt.Equal(items[b].CreatedAt) {
			return items[a].CreatedAt.Before(items[b].CreatedAt)
		}
		return items[a].ID < items[b].ID
	})
	return items, nil
}

func (s *fileStore) Stats(_ context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[Status]int)
	for _, item := range s.doc.Items {
		stats[item.Status]++
	}
	return stats, nil
}

func (s *fileStore) Retry(_ context.Context, names ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := func(item *Item) bool { return item.Status == StatusFailed }
	if len(names) > 0 {
		wanted := make(map[string]struct{}, len(names))
		for _, name := range names {
			wanted[strings.TrimSpace(name)] = struct{}{}
		}
		selected = func(item *Item) bool {
			if item.Status != StatusFailed {
				return false
			}
			_, ok := wanted[item.Name]
			return ok
		}
	}

	var count int64
	now := time.Now().UTC()
	for _, item := range s.doc.Items {
		if !selected(item) {
			continue
		}
		item.Status = StatusScheduled
		item.ScheduledAt = nil
		item.UpdatedAt = now
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.persist()
}

func (s *fileStore) ClearUploaded(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearStatus(StatusUploaded)
}

func (s *fileStore) ClearFailed(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearStatus(StatusFailed)
}

func (s *fileStore) clearStatus(status Status) (int64, error) {
	var count int64
	for name, item := range s.doc.Items {
		if item.Status == status {
			delete(s.doc.Items, name)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.persist()
}

func (s *fileStore) collect(keep func(*Item) bool) []*Item {
	var items []*Item
	for _, item := range s.doc.Items {
		if keep(item) {
			items = append(items, item.Clone())
		}
	}
	return items
}
