package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/notifications"
)

type recordedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newRecorder(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func newNtfyConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunStarted(context.Background(), 3, 2); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsRunCompleted(t *testing.T) {
	server, recorded := newRecorder(t)
	svc := notifications.NewService(newNtfyConfig(server.URL))

	if err := svc.NotifyRunCompleted(context.Background(), 4, 0, 90*time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}

	requests := recorded()
	if len(requests) != 1 {
		t.Fatalf("expected one request, got %d", len(requests))
	}
	req := requests[0]
	if req.title != "Spool - Run Complete" {
		t.Fatalf("unexpected title %q", req.title)
	}
	if !strings.Contains(req.body, "4 items published in 1m30s") {
		t.Fatalf("unexpected body %q", req.body)
	}
}

func TestNtfyServiceReportsFailuresInRunSummary(t *testing.T) {
	server, recorded := newRecorder(t)
	svc := notifications.NewService(newNtfyConfig(server.URL))

	if err := svc.NotifyRunCompleted(context.Background(), 2, 1, time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}

	requests := recorded()
	if len(requests) != 1 {
		t.Fatalf("expected one request, got %d", len(requests))
	}
	req := requests[0]
	if !strings.Contains(req.title, "with errors") {
		t.Fatalf("unexpected title %q", req.title)
	}
	if !strings.Contains(req.body, "2 published, 1 failed") {
		t.Fatalf("unexpected body %q", req.body)
	}
}

func TestNtfyServiceItemFailedCarriesPriority(t *testing.T) {
	server, recorded := newRecorder(t)
	svc := notifications.NewService(newNtfyConfig(server.URL))

	if err := svc.NotifyItemFailed(context.Background(), "clips/a.mp4", errors.New("copy failed")); err != nil {
		t.Fatalf("NotifyItemFailed: %v", err)
	}

	requests := recorded()
	if len(requests) != 1 {
		t.Fatalf("expected one request, got %d", len(requests))
	}
	req := requests[0]
	if req.priority != "high" {
		t.Fatalf("expected high priority, got %q", req.priority)
	}
	if !strings.Contains(req.body, "clips/a.mp4") || !strings.Contains(req.body, "copy failed") {
		t.Fatalf("unexpected body %q", req.body)
	}
}

func TestNtfyServiceHonorsCategoryToggles(t *testing.T) {
	server, recorded := newRecorder(t)
	cfg := newNtfyConfig(server.URL)
	cfg.Notifications.RunSummary = false
	cfg.Notifications.Publishes = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)

	ctx := context.Background()
	if err := svc.NotifyRunStarted(ctx, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyItemPublished(ctx, "clip.mp4", "lib-1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyItemFailed(ctx, "clip.mp4", errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if len(recorded()) != 0 {
		t.Fatalf("expected no requests with all categories disabled, got %d", len(recorded()))
	}

	// The test notification ignores toggles.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatal(err)
	}
	if len(recorded()) != 1 {
		t.Fatalf("expected test notification to be sent, got %d requests", len(recorded()))
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	svc := notifications.NewService(newNtfyConfig(server.URL))
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
