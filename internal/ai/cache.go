package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"smart-email/internal/logger"
	"smart-email/internal/metrics"
	"smart-email/internal/model"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "smart-email:classify:"

// CachedClient serves repeated classification requests from Redis. Redis
// failures are logged and never block classification.
type CachedClient struct {
	next   Client
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *logger.Logger
}

func NewCachedClient(next Client, rdb redis.Cmdable, ttl time.Duration, logger *logger.Logger) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(req model.ClassificationRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedClient) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
	key := cacheKey(req)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var resp model.ClassificationResponse
		if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
			metrics.RecordCacheLookup("hit")
			return resp, nil
		}
		metrics.RecordCacheLookup("error")
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheLookup("miss")
	default:
		metrics.RecordCacheLookup("error")
		c.logger.Warnf("classification cache read failed: %v", err)
	}

	resp, err := c.next.Classify(ctx, req)
	if err != nil {
		return resp, err
	}

	if b, jsonErr := json.Marshal(resp); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, b, c.ttl).Err(); setErr != nil {
			c.logger.Warnf("classification cache write failed: %v", setErr)
		}
	}
	return resp, nil
}
