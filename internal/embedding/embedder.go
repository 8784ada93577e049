// Package embedding turns text into dense vectors used for semantic similarity
// and as classifier features.
package embedding

import (
	"context"
	"fmt"

	"atsfit/internal/config"
	"atsfit/internal/errors"
	"atsfit/internal/observability"
	"atsfit/internal/storage"
)

// Embedder produces a fixed-dimension vector for a text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
	Name() string
}

// HealthReporter is implemented by embedders guarded by a circuit breaker
type HealthReporter interface {
	Stats() map[string]any
	Healthy() bool
}

// Stats returns the breaker stats of e, or a disabled marker when e has none
func Stats(e Embedder) map[string]any {
	if hr, ok := e.(HealthReporter); ok {
		return hr.Stats()
	}
	return map[string]any{"provider": e.Name(), "enabled": false}
}

// Healthy reports whether e can currently serve requests
func Healthy(e Embedder) bool {
	if hr, ok := e.(HealthReporter); ok {
		return hr.Healthy()
	}
	return true
}

// Close releases resources held by e, such as the cache connection
func Close(e Embedder) error {
	if c, ok := e.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// NewEmbedder builds the configured provider, wrapped in the Redis cache when enabled
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *errors.Logger, metrics *observability.Metrics) (Embedder, error) {
	var provider Embedder
	var err error

	logger.Debug("Initializing embedding provider",
		"provider", cfg.Embedding.Provider,
		"model", cfg.Embedding.Model,
		"timeout", cfg.Embedding.Timeout,
		"max_retries", cfg.Embedding.MaxRetries)

	switch cfg.Embedding.Provider {
	case "hashing":
		provider = NewHashing(cfg.Embedding.Dimension)
	case "gemini":
		provider, err = NewGemini(ctx, cfg.Embedding, logger, metrics)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported embedding provider: %s", cfg.Embedding.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return provider, nil
	}

	client, err := storage.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		logger.LogError(err, "Embedding cache unavailable, continuing without it", "address", cfg.Cache.Address)
		return provider, nil
	}
	return NewCached(provider, cfg.Embedding.Model, storage.NewRedisStore(client), cfg.Cache.TTL, logger, metrics), nil
}
