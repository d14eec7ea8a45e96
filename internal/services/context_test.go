package services_test

import (
	"context"
	"testing"

	"spool/internal/services"
)

func TestItemNameRoundTrip(t *testing.T) {
	ctx := services.WithItemName(context.Background(), "clips/a.mp4")
	name, ok := services.ItemNameFromContext(ctx)
	if !ok || name != "clips/a.mp4" {
		t.Fatalf("expected item name round trip, got %q ok=%v", name, ok)
	}
}

func TestItemNameAbsent(t *testing.T) {
	if _, ok := services.ItemNameFromContext(context.Background()); ok {
		t.Fatal("expected no item name on empty context")
	}
	ctx := services.WithItemName(context.Background(), "")
	if _, ok := services.ItemNameFromContext(ctx); ok {
		t.Fatal("expected empty name to be ignored")
	}
}

func TestRunIDRoundTrip(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "run-123")
	id, ok := services.RunIDFromContext(ctx)
	if !ok || id != "run-123" {
		t.Fatalf("expected run id round trip, got %q ok=%v", id, ok)
	}
}
