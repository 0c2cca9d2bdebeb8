// Package cache stores computed attribution reports in Redis so repeated API
// queries over the same window skip the warehouse. The engine itself never
// caches; this sits in front of it on the HTTP path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/vector-attribution/internal/attribution"
	"github.com/redis/go-redis/v9"
)

// keyNamespace scopes report keys derived with uuid.NewSHA1.
var keyNamespace = uuid.MustParse("6f1c1c3e-4d0b-5b8e-9a57-2f7d1e3c9b41")

// ReportCache reads and writes attribution results in Redis.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewReportCache creates a cache with the given entry TTL and key prefix.
func NewReportCache(client *redis.Client, ttl time.Duration, prefix string) *ReportCache {
	return &ReportCache{client: client, ttl: ttl, prefix: prefix}
}

// Key returns the cache key for a request. Requests that differ only in
// channel at channel level share a key, since channel is ignored there.
func (c *ReportCache) Key(req attribution.Request) string {
	channel := req.Channel
	if !req.Level.RequiresChannel() {
		channel = ""
	}
	normalized := strings.Join([]string{
		req.ShopID,
		string(req.Model),
		string(req.Level),
		req.StartDate.Format(attribution.DateLayout),
		req.EndDate.Format(attribution.DateLayout),
		channel,
	}, "|")
	return fmt.Sprintf("%s:%s:%s", c.prefix, req.ShopID, uuid.NewSHA1(keyNamespace, []byte(normalized)))
}

// Get returns the cached result for key. A miss yields (nil, false, nil).
func (c *ReportCache) Get(ctx context.Context, key string) (*attribution.Result, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}

	var res attribution.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &res, true, nil
}

// Set stores res under key for the cache TTL.
func (c *ReportCache) Set(ctx context.Context, key string, res *attribution.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached report: %w", err)
	}
	return nil
}

// InvalidateShop removes every cached report of a shop.
func (c *ReportCache) InvalidateShop(ctx context.Context, shopID string) (int64, error) {
	pattern := fmt.Sprintf("%s:%s:*", c.prefix, shopID)

	var removed int64
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to delete cached report: %w", err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cached reports: %w", err)
	}
	return removed, nil
}
