package scout

import (
	"context"
	"time"
)

// Fetcher performs a single bounded HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResult, error)
}

// Publisher pushes enrichment completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw HTML snapshots and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Hasher computes content digests used as cache validators.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing TTL behavior).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
