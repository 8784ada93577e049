package embedding

import (
	"context"
	stderrors "errors"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestHashingIsDeterministicAndNormalised(t *testing.T) {
	h := NewHashing(64)
	ctx := context.Background()

	a, err := h.Embed(ctx, "Senior Go developer, Kubernetes and Docker")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "senior go developer kubernetes and docker")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestHashingEmptyText(t *testing.T) {
	vec, err := NewHashing(0).Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Len(t, vec, DefaultHashingDimension)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHashingHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashing(8).Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	gets    int
	closed  bool
	lastTTL time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func (m *memoryStore) Close() error {
	m.closed = true
	return nil
}

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float64{float64(len(text)), 0.5}, nil
}

func (c *countingEmbedder) Dimension() int { return 2 }

func (c *countingEmbedder) Name() string { return "counting" }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	store := newMemoryStore()
	cached := NewCached(inner, "m1", store, time.Hour, nil, nil)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, time.Hour, store.lastTTL)
	assert.Contains(t, store.data, CacheKey("counting", "m1", "hello"))

	require.NoError(t, Close(cached))
	assert.True(t, store.closed)
}

func TestCachedEmbedderFallsThroughOnStoreErrors(t *testing.T) {
	inner := &countingEmbedder{}
	store := newMemoryStore()
	store.getErr = stderrors.New("connection refused")
	store.setErr = stderrors.New("connection refused")
	cached := NewCached(inner, "m1", store, time.Minute, nil, nil)

	vec, err := cached.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0.5}, vec)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderIgnoresCorruptEntries(t *testing.T) {
	inner := &countingEmbedder{}
	store := newMemoryStore()
	store.data[CacheKey("counting", "m1", "abc")] = []byte("not json")
	cached := NewCached(inner, "m1", store, time.Minute, nil, nil)

	vec, err := cached.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0.5}, vec)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderPropagatesProviderErrors(t *testing.T) {
	providerErr := errors.NewModelError(errors.ErrCodeEmbeddingFailed, "down", nil)
	cached := NewCached(&countingEmbedder{err: providerErr}, "m1", newMemoryStore(), time.Minute, nil, nil)

	_, err := cached.Embed(context.Background(), "abc")
	assert.True(t, errors.HasCode(err, errors.ErrCodeEmbeddingFailed))
}

func TestCacheKey(t *testing.T) {
	key := CacheKey("gemini", "text-embedding-004", "abc")
	assert.Equal(t,
		"atsfit:emb:gemini:text-embedding-004:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		key)
}

func testGeminiConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Provider:   "gemini",
		Model:      "text-embedding-004",
		Dimension:  3,
		MaxRetries: 2,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
}

func TestGeminiRetriesTransientErrors(t *testing.T) {
	attempts := 0
	call := func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, &googleapi.Error{Code: 503}
		}
		return []float32{0.25, 0.5, 0.25}, nil
	}
	g := newGemini(testGeminiConfig(), call, nil, nil)
	g.baseDelay = time.Millisecond

	vec, err := g.Embed(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5, 0.25}, vec)
	assert.Equal(t, 3, attempts)
}

func TestGeminiDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	call := func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		return nil, &googleapi.Error{Code: 400}
	}
	g := newGemini(testGeminiConfig(), call, nil, nil)
	g.baseDelay = time.Millisecond

	_, err := g.Embed(context.Background(), "resume")
	assert.True(t, errors.HasCode(err, errors.ErrCodeEmbeddingFailed))
	assert.Equal(t, 1, attempts)
}

func TestGeminiBreakerOpens(t *testing.T) {
	call := func(ctx context.Context, text string) ([]float32, error) {
		return nil, &googleapi.Error{Code: 401}
	}
	g := newGemini(testGeminiConfig(), call, nil, nil)

	for range 2 {
		_, err := g.Embed(context.Background(), "resume")
		require.Error(t, err)
	}

	assert.False(t, g.Healthy())
	stats := g.Stats()
	assert.Equal(t, "open", stats["state"])
	assert.Equal(t, "gemini", stats["provider"])
}

func TestGeminiTimeoutMapsToTimeoutCode(t *testing.T) {
	call := func(ctx context.Context, text string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	cfg := testGeminiConfig()
	cfg.CircuitBreaker.Enabled = false
	g := newGemini(cfg, call, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.Embed(ctx, "resume")
	assert.True(t, errors.HasCode(err, errors.ErrCodeEmbeddingTimeout))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &net.OpError{Op: "dial", Err: stderrors.New("refused")}, true},
		{"throttled", &googleapi.Error{Code: 429}, true},
		{"bad gateway", &googleapi.Error{Code: 502}, true},
		{"forbidden", &googleapi.Error{Code: 403}, false},
		{"plain", stderrors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	g := newGemini(testGeminiConfig(), nil, nil, nil)
	assert.GreaterOrEqual(t, g.backoff(1), time.Second)
	assert.Less(t, g.backoff(1), 1100*time.Millisecond)
	assert.Equal(t, maxBackoff, g.backoff(10))
}

func TestStatsWithoutBreaker(t *testing.T) {
	h := NewHashing(8)
	assert.True(t, Healthy(h))
	assert.Equal(t, false, Stats(h)["enabled"])
	assert.NoError(t, Close(h))
}
