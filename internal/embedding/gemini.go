package embedding

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/errors"
	"atsfit/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const maxBackoff = 30 * time.Second

// embedCall is the provider request, swapped out in tests
type embedCall func(ctx context.Context, text string) ([]float32, error)

// Gemini embeds text with the Gemini embedding API
type Gemini struct {
	model      string
	dim        int
	maxRetries int
	call       embedCall
	breaker    *Breaker[[]float32]
	logger     *errors.Logger
	metrics    *observability.Metrics
	baseDelay  time.Duration
}

// NewGemini creates a Gemini embedder from configuration
func NewGemini(ctx context.Context, cfg config.EmbeddingConfig, logger *errors.Logger, metrics *observability.Metrics) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "gemini embedding requires an API key", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewModelError(errors.ErrCodeEmbeddingFailed, "failed to create Gemini client", err)
	}

	var embedConfig *genai.EmbedContentConfig
	if cfg.Dimension > 0 {
		dim := int32(cfg.Dimension)
		embedConfig = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	call := func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.Models.EmbedContent(ctx, cfg.Model, genai.Text(text), embedConfig)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return nil, stderrors.New("empty embedding response")
		}
		return resp.Embeddings[0].Values, nil
	}

	return newGemini(cfg, call, logger, metrics), nil
}

func newGemini(cfg config.EmbeddingConfig, call embedCall, logger *errors.Logger, metrics *observability.Metrics) *Gemini {
	return &Gemini{
		model:      cfg.Model,
		dim:        cfg.Dimension,
		maxRetries: max(cfg.MaxRetries, 0),
		call:       call,
		breaker:    NewBreaker[[]float32]("embedding-gemini", cfg.CircuitBreaker, logger),
		logger:     logger,
		metrics:    metrics,
		baseDelay:  time.Second,
	}
}

// Embed returns the embedding of text. Transient failures are retried with
// backoff inside the circuit breaker.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, span := otel.Tracer("atsfit.embedding.gemini").Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.provider", "gemini"),
		attribute.String("embedding.model", g.model),
		attribute.Int("input.length", len(text)),
	)

	start := time.Now()
	values, err := g.breaker.Execute(func() ([]float32, error) {
		return g.executeWithRetry(ctx, text)
	})
	g.metrics.RecordEmbedding(ctx, g.Name(), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingTimeout, "embedding request timed out", err)
		}
		return nil, errors.NewModelError(errors.ErrCodeEmbeddingFailed, "embedding request failed", err)
	}

	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("embedding.dimension", len(vec)),
	)
	return vec, nil
}

func (g *Gemini) executeWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying embedding request",
				"attempt", attempt,
				"max_retries", g.maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		values, err := g.call(ctx, text)
		if err == nil {
			if attempt > 0 {
				g.logger.Info("Embedding request succeeded after retry", "attempts", attempt+1)
			}
			return values, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, lastErr
}

// backoff doubles per attempt with up to 10% jitter, capped at maxBackoff
func (g *Gemini) backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * g.baseDelay
	var jitter time.Duration
	if limit := int64(float64(base) * 0.1); limit > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(limit)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(base+jitter, maxBackoff)
}

// isRetryableError reports network failures and throttling or server-side API errors
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (g *Gemini) Dimension() int { return g.dim }

func (g *Gemini) Name() string { return "gemini" }

// Stats returns circuit breaker statistics
func (g *Gemini) Stats() map[string]any {
	stats := g.breaker.Stats()
	stats["provider"] = g.Name()
	stats["model"] = g.model
	return stats
}

// Healthy reports whether the breaker is accepting requests
func (g *Gemini) Healthy() bool {
	return g.breaker.Healthy()
}
