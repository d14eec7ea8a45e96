package enrich_test

import (
	"context"
	"errors"
	"testing"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/services/enrich"
)

func TestEnrichBuildsPayload(t *testing.T) {
	enricher := enrich.New(logging.NewNop())
	item := &queue.Item{
		Name:       "clips/promo/launch-day_final [teaser][4k].mp4",
		SourcePath: "/watch/clips/promo/launch-day_final [teaser][4k].mp4",
		Size:       2048,
	}

	payload, err := enricher.Enrich(context.Background(), item)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	meta, err := enrich.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.Title != "Launch Day Final" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.SizeBytes != 2048 {
		t.Fatalf("unexpected size %d", meta.SizeBytes)
	}
	want := []string{"clips", "promo", "teaser", "4k"}
	if len(meta.Tags) != len(want) {
		t.Fatalf("unexpected tags %v", meta.Tags)
	}
	for i, tag := range want {
		if meta.Tags[i] != tag {
			t.Fatalf("expected tag %q at %d, got %v", tag, i, meta.Tags)
		}
	}
	if meta.EnrichedAt.IsZero() {
		t.Fatal("expected enriched_at to be set")
	}
}

func TestEnrichRejectsUnnamedItem(t *testing.T) {
	enricher := enrich.New(logging.NewNop())
	_, err := enricher.Enrich(context.Background(), &queue.Item{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"clips/spring.sale.teaser.mkv", "Spring Sale Teaser"},
		{"ALL_CAPS_CLIP.mp4", "All Caps Clip"},
		{"already titled.mov", "Already Titled"},
		{"[tags][only].mp4", "Untitled"},
		{"a.webm", "A"},
	}
	for _, tc := range cases {
		if got := enrich.DeriveTitle(tc.name); got != tc.want {
			t.Fatalf("DeriveTitle(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := enrich.Decode(""); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := enrich.Decode("{not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
