package queue

import (
	"sort"
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline item.
type Status string

const (
	// StatusNew marks a discovered item that could not be scheduled yet.
	StatusNew Status = "new"
	// StatusScheduled marks an item holding a publish slot. A nil
	// ScheduledAt on a scheduled item means "publish as soon as possible".
	StatusScheduled Status = "scheduled"
	// StatusProcessing marks an item currently moving through the
	// enrich/transform/publish collaborators.
	StatusProcessing Status = "processing"
	// StatusUploaded is terminal; the item was published successfully.
	StatusUploaded Status = "uploaded"
	// StatusFailed marks an item whose last processing attempt failed.
	// Failed items stay eligible for later runs.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusNew,
	StatusScheduled,
	StatusProcessing,
	StatusUploaded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// PendingStatuses are the statuses ListPending selects.
var PendingStatuses = []Status{StatusNew, StatusScheduled, StatusFailed}

// ReadyStatuses are the statuses eligible for the ready queue.
var ReadyStatuses = []Status{StatusScheduled, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Item represents one discovered media unit tracked by the pipeline.
type Item struct {
	ID          int64
	Name        string
	SourcePath  string
	Fingerprint string
	Size        int64
	Status      Status
	ScheduledAt *time.Time
	CompletedAt *time.Time
	ExternalID  string
	Payload     string
	LastError   string
	RetryCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether the item reached a state no run mutates again.
func (i Item) IsTerminal() bool {
	return i.Status == StatusUploaded
}

// Ready reports whether the item's slot has arrived relative to now.
// A nil ScheduledAt counts as immediately ready.
func (i Item) Ready(now time.Time) bool {
	switch i.Status {
	case StatusScheduled, StatusFailed:
	default:
		return false
	}
	return i.ScheduledAt == nil || !i.ScheduledAt.After(now)
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	if i.ScheduledAt != nil {
		t := *i.ScheduledAt
		cp.ScheduledAt = &t
	}
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// HealthSummary describes aggregated item counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	New        int
	Scheduled  int
	Processing int
	Uploaded   int
	Failed     int
}

// Summarize folds per-status counts into a HealthSummary.
func Summarize(stats map[Status]int) HealthSummary {
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusNew:
			health.New += count
		case StatusScheduled:
			health.Scheduled += count
		case StatusProcessing:
			health.Processing += count
		case StatusUploaded:
			health.Uploaded += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health
}

// merge overlays non-zero incoming fields on top of existing, preserving
// identity, retry bookkeeping, and creation time. Upsert semantics for both
// backends route through here so they cannot drift.
func merge(existing, incoming *Item) *Item {
	out := existing.Clone()
	if incoming.SourcePath != "" {
		out.SourcePath = incoming.SourcePath
	}
	if incoming.Fingerprint != "" {
		out.Fingerprint = incoming.Fingerprint
	}
	if incoming.Size > 0 {
		out.Size = incoming.Size
	}
	if incoming.Status != "" {
		out.Status = incoming.Status
	}
	if incoming.ScheduledAt != nil {
		t := *incoming.ScheduledAt
		out.ScheduledAt = &t
	}
	if incoming.CompletedAt != nil {
		t := *incoming.CompletedAt
		out.CompletedAt = &t
	}
	if incoming.ExternalID != "" {
		out.ExternalID = incoming.ExternalID
	}
	if incoming.Payload != "" {
		out.Payload = incoming.Payload
	}
	if incoming.LastError != "" {
		out.LastError = incoming.LastError
	}
	return out
}

// sortPending orders items by ScheduledAt ascending with nils first, then by
// CreatedAt, matching the listing contract both backends implement.
func sortPending(items []*Item) {
	sort.SliceStable(items, func(a, b int) bool {
		left, right := items[a], items[b]
		switch {
		case left.ScheduledAt == nil && right.ScheduledAt != nil:
			return true
		case left.ScheduledAt != nil && right.ScheduledAt == nil:
			return false
		case left.ScheduledAt != nil && right.ScheduledAt != nil:
			if !left.ScheduledAt.Equal(*right.ScheduledAt) {
				return left.ScheduledAt.Before(*right.ScheduledAt)
			}
		}
		return left.CreatedAt.Before(right.CreatedAt)
	})
}
