package matching

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCacheTTL = time.Hour

// PairScorer is the scoring capability the coordinator consumes. Both Scorer
// and CachedScorer satisfy it.
type PairScorer interface {
	Score(ctx context.Context, candidateText, listingText string) Assessment
	Configured() bool
}

// CachedScorer decorates a Scorer with a short-TTL redis cache keyed by the
// pair's projected texts, so browse and recommend do not re-bill the
// reasoning provider for a pair it already scored. Cache failures are
// invisible: the inner scorer is always the source of truth.
type CachedScorer struct {
	inner  PairScorer
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedScorer wraps inner with the redis cache. ttl <= 0 uses the
// default of one hour.
func NewCachedScorer(inner PairScorer, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedScorer {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedScorer{inner: inner, rdb: rdb, ttl: ttl, logger: log}
}

func (c *CachedScorer) Configured() bool {
	return c.inner.Configured()
}

func (c *CachedScorer) Score(ctx context.Context, candidateText, listingText string) Assessment {
	key := cacheKey(candidateText, listingText)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached Assessment
		if json.Unmarshal(data, &cached) == nil {
			return cached
		}
	}

	assessment := c.inner.Score(ctx, candidateText, listingText)

	// Degraded assessments are not cached; the provider may recover within
	// the TTL window.
	if assessment.Reason == ReasonUnableToCompute || assessment.Reason == ReasonNotConfigured {
		return assessment
	}

	if data, err := json.Marshal(assessment); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("score cache write failed", zap.Error(err))
		}
	}

	return assessment
}

func cacheKey(candidateText, listingText string) string {
	sum := sha256.Sum256([]byte(candidateText + "\x00" + listingText))
	return fmt.Sprintf("match:score:%x", sum[:16])
}
