package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"spool/internal/config"
)

const userAgent = "spool/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyRunStarted(ctx context.Context, scanned, ready int) error
	NotifyRunCompleted(ctx context.Context, completed, failed int, duration time.Duration) error
	NotifyItemPublished(ctx context.Context, name, externalID string) error
	NotifyItemFailed(ctx context.Context, name string, itemErr error) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 5),
		runSummary: cfg.Notifications.RunSummary,
		publishes:  cfg.Notifications.Publishes,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter

	runSummary bool
	publishes  bool
	errors     bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, scanned, ready int) error {
	if !n.runSummary {
		return nil
	}
	data := payload{
		title:   "Spool - Run Started",
		message: fmt.Sprintf("Run started: %d files scanned, %d items ready", scanned, ready),
		tags:    []string{"spool", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, completed, failed int, duration time.Duration) error {
	if !n.runSummary {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Spool - Run Complete"
		message = fmt.Sprintf("Run complete: %d items published in %s", completed, durationText)
	} else {
		title = "Spool - Run Complete (with errors)"
		message = fmt.Sprintf("Run complete: %d published, %d failed in %s", completed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"spool", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemPublished(ctx context.Context, name, externalID string) error {
	if !n.publishes {
		return nil
	}
	name = strings.TrimSpace(name)
	message := fmt.Sprintf("Published: %s", name)
	if externalID = strings.TrimSpace(externalID); externalID != "" {
		message = fmt.Sprintf("%s\nID: %s", message, externalID)
	}
	data := payload{
		title:   "Spool - Published",
		message: message,
		tags:    []string{"spool", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, name string, itemErr error) error {
	if !n.errors {
		return nil
	}
	name = strings.TrimSpace(name)
	message := fmt.Sprintf("Failed: %s", name)
	if itemErr != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(itemErr.Error()))
	}
	data := payload{
		title:    "Spool - Item Failed",
		message:  message,
		tags:     []string{"spool", "publish", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Spool - Error",
		message:  builder.String(),
		tags:     []string{"spool", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Spool - Test",
		message:  "Notification system test",
		tags:     []string{"spool", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	// Dropping over-rate sends beats stalling the pipeline on HTTP.
	if n.limiter != nil && !n.limiter.Allow() {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, int, int) error                   { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error  { return nil }
func (noopService) NotifyItemPublished(context.Context, string, string) error          { return nil }
func (noopService) NotifyItemFailed(context.Context, string, error) error              { return nil }
func (noopService) NotifyError(context.Context, error, string) error                   { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
