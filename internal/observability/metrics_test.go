package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"atsfit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func allMetricsEnabled() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		Analysis:       config.AnalysisMetricsConfig{Enabled: true, TrackDuration: true, TrackScores: true},
		Embedding:      config.EmbeddingMetricsConfig{Enabled: true, TrackDuration: true, TrackCache: true},
		Infrastructure: config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true, TrackCertExpiry: true, TrackReports: true},
	}
}

func newTestMetrics(t *testing.T, toggles config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"), toggles)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterTotal(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t, allMetricsEnabled())
	ctx := context.Background()

	m.RecordAnalysis(ctx, ModeJobMatch, true, 120*time.Millisecond, 72.5)
	m.RecordAnalysis(ctx, ModeResumeOnly, true, 40*time.Millisecond, 0)
	m.RecordAnalysis(ctx, ModeJobMatch, false, 10*time.Millisecond, 0)

	data := collect(t, reader)
	assert.Equal(t, int64(3), counterTotal(t, data["atsfit_analyses_total"]))

	scores, ok := data["atsfit_final_score"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, scores.DataPoints, 1)
	assert.Equal(t, uint64(1), scores.DataPoints[0].Count)
	assert.Equal(t, 72.5, scores.DataPoints[0].Sum)
}

func TestRecordEmbedding(t *testing.T) {
	m, reader := newTestMetrics(t, allMetricsEnabled())
	ctx := context.Background()

	m.RecordEmbedding(ctx, "gemini", time.Second, nil)
	m.RecordEmbedding(ctx, "gemini", time.Second, errors.New("503"))
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordCacheLookup(ctx, false)

	data := collect(t, reader)
	assert.Equal(t, int64(2), counterTotal(t, data["atsfit_embedding_requests_total"]))
	assert.Equal(t, int64(1), counterTotal(t, data["atsfit_embedding_errors_total"]))
	assert.Equal(t, int64(3), counterTotal(t, data["atsfit_embedding_cache_total"]))
}

func TestTogglesSuppressRecording(t *testing.T) {
	toggles := allMetricsEnabled()
	toggles.Infrastructure.TrackRateLimits = false
	toggles.Analysis.Enabled = false
	m, reader := newTestMetrics(t, toggles)
	ctx := context.Background()

	m.RecordRateLimitHit(ctx, "ip")
	m.RecordAnalysis(ctx, ModeJobMatch, true, time.Second, 50)
	m.RecordReportArchived(ctx, true)

	data := collect(t, reader)
	assert.NotContains(t, data, "atsfit_rate_limit_hits_total")
	assert.NotContains(t, data, "atsfit_analyses_total")
	assert.Equal(t, int64(1), counterTotal(t, data["atsfit_reports_archived_total"]))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordAnalysis(ctx, ModeJobMatch, true, time.Second, 10)
		m.RecordEmbedding(ctx, "hashing", time.Millisecond, nil)
		m.RecordCacheLookup(ctx, true)
		m.RecordRateLimitHit(ctx, "ip")
		m.RecordReportArchived(ctx, true)
		m.RecordCertReload(ctx, true)
		m.RecordCertExpiry(ctx, time.Hour)
	})
}

func TestDisabledManager(t *testing.T) {
	m, err := NewManager(config.ObservabilityConfig{Enabled: false}, "test")
	require.NoError(t, err)
	assert.Nil(t, m.Metrics())
	assert.NotNil(t, m.Tracer("x"))
	assert.NoError(t, m.Shutdown(context.Background()))
}
