package pipeline

import (
	"context"

	"spool/internal/queue"
)

// Enricher produces the opaque metadata payload stored on an item. Called
// during discovery and again before publishing when the payload is still
// empty.
type Enricher interface {
	Enrich(ctx context.Context, item *queue.Item) (payload string, err error)
}

// Transformer prepares an item's source file for publishing and returns the
// path of the processed file.
type Transformer interface {
	Transform(ctx context.Context, item *queue.Item) (path string, err error)
}

// Publisher pushes a processed file out and returns the external identifier
// recorded on the item.
type Publisher interface {
	Publish(ctx context.Context, item *queue.Item, path string) (externalID string, err error)
}
