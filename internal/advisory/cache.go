package advisory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// Cache memoizes successful lookups for the lifetime of one run.
// Failures are not cached.
type Cache struct {
	next    Lookuper
	metrics *telemetry.Metrics

	mu      sync.Mutex
	entries map[string]*Advisory
}

// NewCache wraps next. metrics may be nil.
func NewCache(next Lookuper, metrics *telemetry.Metrics) *Cache {
	return &Cache{
		next:    next,
		metrics: metrics,
		entries: make(map[string]*Advisory),
	}
}

// Lookup implements Lookuper
func (c *Cache) Lookup(ctx context.Context, id string) (*Advisory, error) {
	c.mu.Lock()
	adv, ok := c.entries[id]
	c.mu.Unlock()
	if ok {
		logger.Debug("Advisory served from run cache", zap.String(logger.FieldCVE, id))
		c.record(ctx, true, true)
		return adv, nil
	}

	adv, err := c.next.Lookup(ctx, id)
	if err != nil {
		c.record(ctx, false, false)
		return nil, err
	}
	c.record(ctx, false, true)

	c.mu.Lock()
	c.entries[id] = adv
	c.mu.Unlock()
	return adv, nil
}

// Len returns the number of cached advisories
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) record(ctx context.Context, cached, success bool) {
	if c.metrics != nil {
		c.metrics.RecordAdvisoryLookup(ctx, cached, success)
	}
}
