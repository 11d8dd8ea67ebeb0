package closure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SummaryCache keeps yearly closure summaries warm in Redis. A nil cache or
// nil client degrades to pass-through.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(taxpayerID uuid.UUID, year int) string {
	return fmt.Sprintf("closure:summary:%s:%d", taxpayerID, year)
}

// Get loads a cached summary. The second return is false on miss or any
// cache-side failure; callers fall back to the repository.
func (c *SummaryCache) Get(ctx context.Context, taxpayerID uuid.UUID, year int) (YearSummary, bool) {
	if c == nil || c.client == nil {
		return YearSummary{}, false
	}
	raw, err := c.client.Get(ctx, summaryKey(taxpayerID, year)).Bytes()
	if err != nil {
		return YearSummary{}, false
	}
	var summary YearSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return YearSummary{}, false
	}
	return summary, true
}

// Set stores a summary with the configured TTL. Failures are ignored; the
// cache is advisory.
func (c *SummaryCache) Set(ctx context.Context, taxpayerID uuid.UUID, summary YearSummary) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, summaryKey(taxpayerID, summary.Year), raw, c.ttl).Err()
}

// Invalidate drops the cached summary for one taxpayer/year.
func (c *SummaryCache) Invalidate(ctx context.Context, taxpayerID uuid.UUID, year int) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryKey(taxpayerID, year)).Err()
}
