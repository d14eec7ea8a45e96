package services

import "context"

type contextKey string

const (
	itemNameKey contextKey = "item"
	runIDKey    contextKey = "run_id"
)

// WithItemName annotates context with the queue item name so collaborators can
// correlate their own logging with the pipeline's.
func WithItemName(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, itemNameKey, name)
}

// ItemNameFromContext extracts the queue item name if present.
func ItemNameFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemNameKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
