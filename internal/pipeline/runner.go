package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/discovery"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/schedule"
	"spool/internal/services"
	"spool/internal/services/enrich"
	"spool/internal/services/publish"
)

// Runner executes orchestrator runs against a single item store.
type Runner struct {
	cfg      *config.Config
	store    queue.Store
	scanner  *discovery.Scanner
	planner  *schedule.Planner
	logger   *slog.Logger
	notifier notifications.Service

	enricher    Enricher
	transformer Transformer
	publisher   Publisher

	collaboratorTimeout time.Duration
	now                 func() time.Time
}

// RunnerOption overrides a Runner collaborator, primarily for tests.
type RunnerOption func(*Runner)

// WithEnricher replaces the default filename enricher.
func WithEnricher(e Enricher) RunnerOption { return func(r *Runner) { r.enricher = e } }

// WithTransformer replaces the default passthrough transformer.
func WithTransformer(t Transformer) RunnerOption { return func(r *Runner) { r.transformer = t } }

// WithPublisher replaces the default library publisher.
func WithPublisher(p Publisher) RunnerOption { return func(r *Runner) { r.publisher = p } }

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) RunnerOption { return func(r *Runner) { r.notifier = n } }

// WithClock replaces the wall clock used for scheduling and readiness.
func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

// NewRunner constructs a runner with the default collaborators from
// configuration.
func NewRunner(cfg *config.Config, store queue.Store, logger *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	planner, err := schedule.NewPlanner(cfg.Scheduling.Timezone, cfg.Scheduling.DailyCap, cfg.Scheduling.Windows)
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	runner := &Runner{
		cfg:                 cfg,
		store:               store,
		scanner:             discovery.NewScanner(cfg.Paths.WatchDir, logger),
		planner:             planner,
		logger:              logging.NewComponentLogger(logger, "pipeline"),
		notifier:            notifications.NewService(cfg),
		enricher:            enrich.New(logger),
		transformer:         publish.Passthrough{},
		publisher:           publish.NewLibrary(cfg, logger),
		collaboratorTimeout: time.Duration(cfg.Workflow.CollaboratorTimeoutSeconds) * time.Second,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Run executes one full discovery + scheduling + publishing pass. Only a
// discovery fault aborts the run; per-item failures land in the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := r.now()
	summary := Summary{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := r.logger.With(logging.String(logging.FieldRunID, summary.RunID))

	logger.Info("run started", logging.String(logging.FieldEventType, "run_started"))

	scheduled, scanned, err := r.discoverAndSchedule(ctx, logger)
	summary.Scanned = scanned
	summary.Scheduled = scheduled
	if err != nil {
		summary.Duration = r.now().Sub(started)
		if notifyErr := r.notifier.NotifyError(ctx, err, "discovery"); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return summary, fmt.Errorf("discovery: %w", err)
	}

	ready, err := r.store.ListReady(ctx, r.now())
	if err != nil {
		summary.Duration = r.now().Sub(started)
		return summary, fmt.Errorf("list ready items: %w", err)
	}

	if notifyErr := r.notifier.NotifyRunStarted(ctx, summary.Scanned, len(ready)); notifyErr != nil {
		logger.Warn("run notification failed", logging.Error(notifyErr))
	}

	for _, item := range ready {
		if err := ctx.Err(); err != nil {
			summary.Duration = r.now().Sub(started)
			return summary, err
		}
		if err := r.processItem(ctx, logger, item); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", item.Name, err))
		} else {
			summary.Completed++
		}
	}

	summary.Duration = r.now().Sub(started)
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.Int("scanned", summary.Scanned),
		logging.Int("scheduled", summary.Scheduled),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	if notifyErr := r.notifier.NotifyRunCompleted(ctx, summary.Completed, summary.Failed, summary.Duration); notifyErr != nil {
		logger.Warn("run notification failed", logging.Error(notifyErr))
	}
	return summary, nil
}

// discoverAndSchedule walks the watch directory and books slots for new
// items. Slots claimed earlier in the same run count as taken so two files
// discovered together cannot share a timestamp.
func (r *Runner) discoverAndSchedule(ctx context.Context, logger *slog.Logger) (scheduled, scanned int, err error) {
	candidates, err := r.scanner.ListCandidates(ctx)
	if err != nil {
		return 0, 0, err
	}
	scanned = len(candidates)
	if scanned == 0 {
		return 0, 0, nil
	}

	taken, err := r.takenSlots(ctx)
	if err != nil {
		return 0, scanned, err
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return scheduled, scanned, err
		}

		skip, err := r.shouldSkipCandidate(ctx, candidate)
		if err != nil {
			return scheduled, scanned, err
		}
		if skip {
			continue
		}

		item := &queue.Item{
			Name:        candidate.Name,
			SourcePath:  candidate.Path,
			Fingerprint: candidate.Fingerprint,
			Size:        candidate.Size,
			Status:      queue.StatusNew,
		}

		// Enrichment at discovery is best effort; the processing pass
		// retries it when the payload is still empty.
		if payload, enrichErr := r.enrichWithTimeout(ctx, item); enrichErr != nil {
			logger.Warn("discovery enrichment failed",
				logging.String(logging.FieldItem, item.Name),
				logging.Error(enrichErr),
			)
		} else {
			item.Payload = payload
		}

		if slot, ok := r.planner.NextSlot(r.now(), taken); ok {
			item.Status = queue.StatusScheduled
			item.ScheduledAt = &slot
			taken = append(taken, slot)
		}

		stored, err := r.store.Upsert(ctx, item)
		if err != nil {
			return scheduled, scanned, fmt.Errorf("upsert %q: %w", item.Name, err)
		}
		if stored.Status == queue.StatusScheduled {
			scheduled++
			logger.Info("item scheduled",
				logging.String(logging.FieldEventType, "item_scheduled"),
				logging.String(logging.FieldItem, stored.Name),
				logging.Time("slot", derefTime(stored.ScheduledAt)),
			)
		} else {
			logger.Info("no slot available within horizon",
				logging.String(logging.FieldEventType, "item_unscheduled"),
				logging.String(logging.FieldItem, stored.Name),
			)
		}
	}
	return scheduled, scanned, nil
}

// shouldSkipCandidate applies the dedup rules: content already published
// wins over filename, and any record beyond the new state keeps its current
// place in the pipeline.
func (r *Runner) shouldSkipCandidate(ctx context.Context, candidate discovery.Candidate) (bool, error) {
	byFingerprint, err := r.store.GetByFingerprint(ctx, candidate.Fingerprint)
	if err != nil {
		return false, fmt.Errorf("lookup fingerprint for %q: %w", candidate.Name, err)
	}
	if byFingerprint != nil && byFingerprint.ExternalID != "" {
		return true, nil
	}

	existing, err := r.store.GetByName(ctx, candidate.Name)
	if err != nil {
		return false, fmt.Errorf("lookup %q: %w", candidate.Name, err)
	}
	if existing == nil {
		return false, nil
	}
	// Scheduled items are already queued, uploaded items are done, failed
	// items keep their past slot so retries stay immediately eligible, and
	// processing leftovers from an interrupted run are not rebooked.
	return existing.Status != queue.StatusNew, nil
}

// takenSlots collects the future publish slots currently booked in the store.
func (r *Runner) takenSlots(ctx context.Context) ([]time.Time, error) {
	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	now := r.now()
	var taken []time.Time
	for _, item := range pending {
		if item.ScheduledAt != nil && item.ScheduledAt.After(now) {
			taken = append(taken, *item.ScheduledAt)
		}
	}
	return taken, nil
}

// processItem advances one ready item to a terminal state. The returned error
// is also recorded on the item; callers aggregate it into the summary.
func (r *Runner) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	itemCtx := services.WithItemName(ctx, item.Name)

	// A fingerprint twin that published since this item was queued makes
	// this item duplicate content.
	if item.Fingerprint != "" {
		twin, err := r.store.GetByFingerprint(itemCtx, item.Fingerprint)
		if err != nil {
			return r.failItem(itemCtx, logger, item, fmt.Errorf("lookup fingerprint: %w", err))
		}
		if twin != nil && twin.Name != item.Name && twin.ExternalID != "" {
			return r.failItem(itemCtx, logger, item,
				services.Wrap(services.ErrValidation, "pipeline", "dedup", "duplicate content already published as "+twin.Name, nil))
		}
	}

	if err := r.store.SetProcessing(itemCtx, item.Name); err != nil {
		return r.failItem(itemCtx, logger, item, fmt.Errorf("mark processing: %w", err))
	}
	logger.Info("processing item",
		logging.String(logging.FieldEventType, "item_processing"),
		logging.String(logging.FieldItem, item.Name),
	)

	payload := item.Payload
	if payload == "" {
		enriched, err := r.enrichWithTimeout(itemCtx, item)
		if err != nil {
			return r.failItem(itemCtx, logger, item, err)
		}
		payload = enriched
		item.Payload = payload
	}

	processedPath, err := r.transformWithTimeout(itemCtx, item)
	if err != nil {
		return r.failItem(itemCtx, logger, item, err)
	}

	externalID, err := r.publishWithTimeout(itemCtx, item, processedPath)
	if err != nil {
		return r.failItem(itemCtx, logger, item, err)
	}

	if err := r.store.SetUploaded(itemCtx, item.Name, externalID, payload); err != nil {
		return r.failItem(itemCtx, logger, item, fmt.Errorf("mark uploaded: %w", err))
	}

	logger.Info("item uploaded",
		logging.String(logging.FieldEventType, "item_uploaded"),
		logging.String(logging.FieldItem, item.Name),
		logging.String("external_id", externalID),
	)
	if notifyErr := r.notifier.NotifyItemPublished(itemCtx, item.Name, externalID); notifyErr != nil {
		logger.Warn("publish notification failed", logging.Error(notifyErr))
	}
	return nil
}

// failItem records a per-item failure without aborting the run.
func (r *Runner) failItem(ctx context.Context, logger *slog.Logger, item *queue.Item, itemErr error) error {
	if err := r.store.SetFailed(ctx, item.Name, itemErr.Error()); err != nil {
		logger.Error("failed to record item failure",
			logging.String(logging.FieldItem, item.Name),
			logging.Error(err),
		)
	}
	logger.Error("item failed",
		logging.String(logging.FieldEventType, "item_failed"),
		logging.String(logging.FieldItem, item.Name),
		logging.Error(itemErr),
		logging.String(logging.FieldErrorHint, services.Hint(itemErr)),
	)
	if notifyErr := r.notifier.NotifyItemFailed(ctx, item.Name, itemErr); notifyErr != nil {
		logger.Warn("failure notification failed", logging.Error(notifyErr))
	}
	return itemErr
}

func (r *Runner) enrichWithTimeout(ctx context.Context, item *queue.Item) (string, error) {
	ctx, cancel := r.collaboratorContext(ctx)
	defer cancel()
	return r.enricher.Enrich(ctx, item)
}

func (r *Runner) transformWithTimeout(ctx context.Context, item *queue.Item) (string, error) {
	ctx, cancel := r.collaboratorContext(ctx)
	defer cancel()
	return r.transformer.Transform(ctx, item)
}

func (r *Runner) publishWithTimeout(ctx context.Context, item *queue.Item, path string) (string, error) {
	ctx, cancel := r.collaboratorContext(ctx)
	defer cancel()
	return r.publisher.Publish(ctx, item, path)
}

func (r *Runner) collaboratorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.collaboratorTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.collaboratorTimeout)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
