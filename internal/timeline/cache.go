package timeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/medicore/clinic-platform/pkg/logging"
)

const cacheKeyPrefix = "patient_timeline:"

// Cache holds recently aggregated timelines in Redis. Entries are invalidated
// whenever the enrichment pipeline persists new lab results for a patient.
type Cache struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
	logger *logging.Logger
}

// NewCache builds a timeline cache. A nil redis client yields a nil cache,
// which every method treats as a no-op.
func NewCache(redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *Cache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{
		redis:  redisClient,
		tracer: otel.Tracer("clinica.internal.timeline.cache"),
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached timeline for a patient, if present. Cache failures
// degrade to a miss.
func (c *Cache) Get(ctx context.Context, patientID string) ([]Item, bool) {
	if c == nil || c.redis == nil || patientID == "" {
		return nil, false
	}
	ctx, span := c.tracer.Start(ctx, "timeline.cache.get")
	defer span.End()

	raw, err := c.redis.Get(ctx, cacheKeyPrefix+patientID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("timeline cache read failed", "patient_id", patientID, "error", err)
		}
		return nil, false
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("timeline cache entry corrupt, dropping", "patient_id", patientID, "error", err)
		c.Invalidate(ctx, patientID)
		return nil, false
	}
	return items, true
}

// Set stores the aggregated timeline with the configured TTL. Failures are
// logged, never propagated: the cache is an optimization, not a dependency.
func (c *Cache) Set(ctx context.Context, patientID string, items []Item) {
	if c == nil || c.redis == nil || patientID == "" {
		return
	}
	ctx, span := c.tracer.Start(ctx, "timeline.cache.set")
	defer span.End()

	raw, err := json.Marshal(items)
	if err != nil {
		c.logger.Warn("timeline cache encode failed", "patient_id", patientID, "error", err)
		return
	}
	if err := c.redis.Set(ctx, cacheKeyPrefix+patientID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("timeline cache write failed", "patient_id", patientID, "error", err)
	}
}

// Invalidate drops the cached timeline for a patient.
func (c *Cache) Invalidate(ctx context.Context, patientID string) {
	if c == nil || c.redis == nil || patientID == "" {
		return
	}
	ctx, span := c.tracer.Start(ctx, "timeline.cache.invalidate")
	defer span.End()

	if err := c.redis.Del(ctx, cacheKeyPrefix+patientID).Err(); err != nil {
		c.logger.Warn("timeline cache invalidate failed", "patient_id", patientID, "error", err)
	}
}
