package cache

import (
	"context"
	"time"

	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// tagSetTTL keeps tag index sets alive a little longer than the longest
// response TTL so an entry is never orphaned from its tags.
const tagSetTTL = 10 * time.Minute

// Invalidator maintains the tag index and sweeps stale entries when a
// mutation lands.
type Invalidator struct {
	client  *Client
	metrics *observability.Metrics
}

// NewInvalidator creates an invalidator over the cache client
func NewInvalidator(client *Client, metrics *observability.Metrics) *Invalidator {
	return &Invalidator{client: client, metrics: metrics}
}

// IndexKey records that a cache key was written for a request shape, so
// later mutations with overlapping tags can find and delete it.
func (inv *Invalidator) IndexKey(ctx context.Context, key string, shape RequestShape) error {
	for _, tag := range TagsFor(shape) {
		if err := inv.client.SAdd(ctx, TagSetKey(tag), tagSetTTL, key); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate sweeps every cache entry a mutation with this shape could
// have staled. All tag set members are collected before anything is
// deleted, then the consumed tag sets go, then the exact keys, then the
// pattern sweeps. Returns the number of cache entries removed.
func (inv *Invalidator) Invalidate(ctx context.Context, shape RequestShape) (int64, error) {
	tags := TagsFor(shape)

	// collect first so a partially deleted index never hides keys
	exact := make(map[string]struct{})
	tagSets := make([]string, 0, len(tags))
	for _, tag := range tags {
		setKey := TagSetKey(tag)
		tagSets = append(tagSets, setKey)
		members, err := inv.client.SMembers(ctx, setKey)
		if err != nil {
			return 0, err
		}
		for _, m := range members {
			exact[m] = struct{}{}
		}
	}

	if _, err := inv.client.Del(ctx, tagSets...); err != nil {
		return 0, err
	}

	var deleted int64
	if len(exact) > 0 {
		keys := make([]string, 0, len(exact))
		for k := range exact {
			keys = append(keys, k)
		}
		n, err := inv.client.Del(ctx, keys...)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	for _, pattern := range PatternsFor(shape) {
		n, err := inv.client.ScanDelete(ctx, pattern)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	if inv.metrics != nil {
		inv.metrics.CacheInvalidationsTotal.WithLabelValues(Sanitize(shape.RouteEntity)).Inc()
		inv.metrics.CacheKeysDeletedTotal.Add(float64(deleted))
	}
	return deleted, nil
}
