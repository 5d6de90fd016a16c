package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/profile-portal/internal/application/service"
	"github.com/khoahotran/profile-portal/internal/domain/content"
	"github.com/khoahotran/profile-portal/pkg/apperror"
)

const lastGoodKey = "portal:content:last_good"

type redisContentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisContentCache(rdb *redis.Client, ttl time.Duration) service.ContentCache {
	return &redisContentCache{rdb: rdb, ttl: ttl}
}

type cachedRecord struct {
	Document  json.RawMessage `json:"document"`
	Source    content.Source  `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (c *redisContentCache) Save(ctx context.Context, cached service.CachedContent) error {
	doc, err := json.Marshal(cached.Document)
	if err != nil {
		return apperror.NewInternal("failed to marshal cached content", err)
	}
	value, err := json.Marshal(cachedRecord{Document: doc, Source: cached.Source, FetchedAt: cached.FetchedAt})
	if err != nil {
		return apperror.NewInternal("failed to marshal cache record", err)
	}

	if err := c.rdb.Set(ctx, lastGoodKey, value, c.ttl).Err(); err != nil {
		return apperror.NewInternal("failed to write content cache", err)
	}
	return nil
}

// Load re-normalizes the stored document so entries written by an older
// build still come back with every key present.
func (c *redisContentCache) Load(ctx context.Context) (*service.CachedContent, error) {
	value, err := c.rdb.Get(ctx, lastGoodKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperror.NewInternal("failed to read content cache", err)
	}

	var record cachedRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, apperror.NewFormat("content cache record is corrupt", err)
	}
	doc, err := content.Normalize(record.Document)
	if err != nil {
		return nil, apperror.NewFormat("cached content document is corrupt", err)
	}

	return &service.CachedContent{Document: doc, Source: record.Source, FetchedAt: record.FetchedAt}, nil
}
