package observability

import (
	"context"
	"fmt"
	"time"

	"atsfit/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Analysis modes used as the "mode" attribute
const (
	ModeJobMatch   = "job_match"
	ModeResumeOnly = "resume_only"
)

// Metrics holds all custom instruments. A nil *Metrics records nothing.
type Metrics struct {
	toggles config.CustomMetricsConfig

	// Analysis
	Analyses         metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
	FinalScore       metric.Float64Histogram

	// Embedding
	EmbeddingRequests metric.Int64Counter
	EmbeddingErrors   metric.Int64Counter
	EmbeddingDuration metric.Float64Histogram
	EmbeddingCache    metric.Int64Counter

	// Infrastructure
	RateLimitHits   metric.Int64Counter
	ReportsArchived metric.Int64Counter
	CertReloads     metric.Int64Counter
	CertExpiry      metric.Float64Gauge
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, toggles config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{toggles: toggles}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.Analyses, "atsfit_analyses_total", "Total number of resume analyses"},
		{&m.EmbeddingRequests, "atsfit_embedding_requests_total", "Total number of embedding provider calls"},
		{&m.EmbeddingErrors, "atsfit_embedding_errors_total", "Total number of failed embedding provider calls"},
		{&m.EmbeddingCache, "atsfit_embedding_cache_total", "Embedding cache lookups by result"},
		{&m.RateLimitHits, "atsfit_rate_limit_hits_total", "Total number of rate limited requests"},
		{&m.ReportsArchived, "atsfit_reports_archived_total", "Total number of PDF reports archived"},
		{&m.CertReloads, "atsfit_cert_reloads_total", "Total number of certificate reloads"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	m.AnalysisDuration, err = meter.Float64Histogram("atsfit_analysis_duration_seconds",
		metric.WithDescription("Time spent analyzing a resume"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	m.FinalScore, err = meter.Float64Histogram("atsfit_final_score",
		metric.WithDescription("Distribution of final ATS scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100))
	if err != nil {
		return nil, fmt.Errorf("failed to create final score metric: %w", err)
	}

	m.EmbeddingDuration, err = meter.Float64Histogram("atsfit_embedding_duration_seconds",
		metric.WithDescription("Time spent in embedding provider calls"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding duration metric: %w", err)
	}

	m.CertExpiry, err = meter.Float64Gauge("atsfit_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry metric: %w", err)
	}

	return m, nil
}

// RecordAnalysis records one Analyze call. score is only observed in job match mode.
func (m *Metrics) RecordAnalysis(ctx context.Context, mode string, success bool, duration time.Duration, score float64) {
	if m == nil || !m.toggles.Analysis.Enabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	)
	m.Analyses.Add(ctx, 1, attrs)
	if m.toggles.Analysis.TrackDuration {
		m.AnalysisDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if success && mode == ModeJobMatch && m.toggles.Analysis.TrackScores {
		m.FinalScore.Record(ctx, score)
	}
}

// RecordEmbedding records one provider call
func (m *Metrics) RecordEmbedding(ctx context.Context, provider string, duration time.Duration, err error) {
	if m == nil || !m.toggles.Embedding.Enabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	)
	m.EmbeddingRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.EmbeddingErrors.Add(ctx, 1, attrs)
	}
	if m.toggles.Embedding.TrackDuration {
		m.EmbeddingDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordCacheLookup records an embedding cache hit or miss
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil || !m.toggles.Embedding.Enabled || !m.toggles.Embedding.TrackCache {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRateLimitHit records a rejected request. keyType is "ip" or "api_key".
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if !m.infrastructure(func(c config.InfrastructureMetricsConfig) bool { return c.TrackRateLimits }) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

// RecordReportArchived records an upload of a rendered report
func (m *Metrics) RecordReportArchived(ctx context.Context, success bool) {
	if !m.infrastructure(func(c config.InfrastructureMetricsConfig) bool { return c.TrackReports }) {
		return
	}
	m.ReportsArchived.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCertReload records a TLS certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if !m.infrastructure(func(c config.InfrastructureMetricsConfig) bool { return c.TrackCertExpiry }) {
		return
	}
	m.CertReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCertExpiry records the time left before the serving certificate expires
func (m *Metrics) RecordCertExpiry(ctx context.Context, remaining time.Duration) {
	if !m.infrastructure(func(c config.InfrastructureMetricsConfig) bool { return c.TrackCertExpiry }) {
		return
	}
	m.CertExpiry.Record(ctx, remaining.Seconds())
}

func (m *Metrics) infrastructure(track func(config.InfrastructureMetricsConfig) bool) bool {
	return m != nil && m.toggles.Infrastructure.Enabled && track(m.toggles.Infrastructure)
}
