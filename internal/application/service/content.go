package service

import (
	"context"
	"time"

	"github.com/khoahotran/profile-portal/internal/domain/content"
)

// ContentSource fetches one raw, validated JSON content payload.
type ContentSource interface {
	Fetch(ctx context.Context) ([]byte, error)
	Name() string
}

type CachedContent struct {
	Document  content.Document `json:"document"`
	Source    content.Source   `json:"source"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// ContentCache keeps the last-known-good document across restarts. Load
// returns (nil, nil) on a miss.
type ContentCache interface {
	Save(ctx context.Context, cached CachedContent) error
	Load(ctx context.Context) (*CachedContent, error)
}

// Trigger fires fn whenever a reload is wanted, e.g. when the site becomes
// visible again. The returned func unsubscribes.
type Trigger interface {
	Subscribe(fn func()) (unsubscribe func())
}
