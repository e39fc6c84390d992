package mirror

import (
	"context"
	"io"
	"time"
)

// BlobStore persists mirrored content. Paths are relative to the store's root
// and always use forward slashes.
type BlobStore interface {
	MkdirAll(ctx context.Context, dir string) error
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes discovered asset batches to whoever schedules fetches.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// AssetBatch is the notification emitted after a page task discovers assets.
type AssetBatch struct {
	PageURL      string    `json:"page_url"`
	Assets       []string  `json:"assets"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
