package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"caregiver-compass/internal/logger"
	"caregiver-compass/models"
	"caregiver-compass/utils"
)

// AnswerCache memoizes finished answers in Redis. The key covers the
// normalized query, the provider that answered, and the exact passage set
// used, so a cache hit is observationally identical to recomputation.
// Failure answers are never cached.
type AnswerCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAnswerCache(rdb *redis.Client, ttl time.Duration) *AnswerCache {
	return &AnswerCache{rdb: rdb, ttl: ttl}
}

func Key(normalizedQuery, provider string, passageIDs []string) string {
	return "answer:" + utils.HashStrings(normalizedQuery, provider, utils.HashIDSet(passageIDs))
}

// Get returns the cached answer for key, or false. Cache errors are logged
// and treated as misses: the cache must never fail a request.
func (c *AnswerCache) Get(ctx context.Context, key string) (models.Answer, bool) {
	if c == nil || c.rdb == nil {
		return models.Answer{}, false
	}

	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Answer cache read failed", "error", err)
		}
		return models.Answer{}, false
	}

	var answer models.Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		logger.Warn("Answer cache entry corrupt, dropping", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return models.Answer{}, false
	}

	answer.Diagnostics.Cached = true
	return answer, true
}

func (c *AnswerCache) Set(ctx context.Context, key string, answer models.Answer) {
	if c == nil || c.rdb == nil {
		return
	}
	if answer.ErrorCode != "" {
		return
	}

	raw, err := json.Marshal(answer)
	if err != nil {
		logger.Warn("Answer cache marshal failed", "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn("Answer cache write failed", "error", err)
	}
}
