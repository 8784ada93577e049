package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"atsfit/internal/errors"
	"atsfit/internal/observability"
)

// Store is a byte-oriented key-value store with expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Cached memoises an Embedder in a Store. Cache failures are logged and the
// request falls through to the wrapped provider.
type Cached struct {
	inner   Embedder
	model   string
	store   Store
	ttl     time.Duration
	logger  *errors.Logger
	metrics *observability.Metrics
}

// NewCached wraps inner with a cache keyed by provider, model and text digest
func NewCached(inner Embedder, model string, store Store, ttl time.Duration, logger *errors.Logger, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		model:   model,
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// CacheKey returns atsfit:emb:<provider>:<model>:<sha256(text)>
func CacheKey(provider, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "atsfit:emb:" + provider + ":" + model + ":" + hex.EncodeToString(sum[:])
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	key := CacheKey(c.inner.Name(), c.model, text)

	raw, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("Embedding cache read failed", "error", err.Error())
	case found:
		var vec []float64
		if err := json.Unmarshal(raw, &vec); err == nil {
			c.metrics.RecordCacheLookup(ctx, true)
			return vec, nil
		}
		c.logger.Warn("Discarding corrupt embedding cache entry", "key", key)
	}
	c.metrics.RecordCacheLookup(ctx, false)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(vec); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Warn("Embedding cache write failed", "error", err.Error())
		}
	}
	return vec, nil
}

func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Stats() map[string]any {
	stats := Stats(c.inner)
	stats["cache"] = true
	return stats
}

func (c *Cached) Healthy() bool { return Healthy(c.inner) }

// Close closes the store and the wrapped embedder
func (c *Cached) Close() error {
	storeErr := c.store.Close()
	if err := Close(c.inner); err != nil {
		return err
	}
	return storeErr
}

// Ping checks the cache backend when it supports health checks
func (c *Cached) Ping(ctx context.Context) error {
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
