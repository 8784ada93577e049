package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{Provider: "hashing", Dimension: 384, Timeout: time.Second},
		Document:  DocumentConfig{PDFBackend: "eino"},
		Server:    ServerConfig{Port: "8080", TLS: TLSConfig{Mode: TLSModeDisabled}},
		App:       AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "pdf"}},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), false)
	require.NoError(t, err)

	assert.Equal(t, "hashing", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "eino", cfg.Document.PDFBackend)
	assert.False(t, cfg.Skills.WordBoundary)
	assert.Equal(t, "models/tfidf.json", cfg.Models.TFIDFPath)
	assert.Equal(t, []string{"json", "text", "markdown", "pdf"}, cfg.App.SupportedFormats)
	assert.Equal(t, TLSModeDisabled, cfg.Server.TLS.Mode)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("ATSFIT_SKILLS_WORDBOUNDARY", "true")
	t.Setenv("ATSFIT_DOCUMENT_PDFBACKEND", "ledongthuc")
	t.Setenv("ATSFIT_SERVER_APIKEYS", "alpha, beta")
	t.Setenv("ATSFIT_EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg, err := load(viper.New(), false)
	require.NoError(t, err)

	assert.True(t, cfg.Skills.WordBoundary)
	assert.Equal(t, "ledongthuc", cfg.Document.PDFBackend)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
	assert.Equal(t, "legacy-key", cfg.Embedding.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
models:
  tfidfPath: /var/lib/atsfit/tfidf.json
  classifierPath: /var/lib/atsfit/svm.json
embedding:
  dimension: 128
cache:
  enabled: true
  address: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := load(v, false)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/atsfit/tfidf.json", cfg.Models.TFIDFPath)
	assert.Equal(t, "/var/lib/atsfit/svm.json", cfg.Models.ClassifierPath)
	assert.Equal(t, 128, cfg.Embedding.Dimension)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Address)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:     "unknown provider",
			mutate:   func(c *Config) { c.Embedding.Provider = "openai" },
			errorMsg: "unknown embedding provider: openai",
		},
		{
			name:     "gemini without key",
			mutate:   func(c *Config) { c.Embedding.Provider = "gemini" },
			errorMsg: "embedding API key is required",
		},
		{
			name: "gemini with key from vault",
			mutate: func(c *Config) {
				c.Embedding.Provider = "gemini"
				c.Vault = VaultConfig{Enabled: true, Secrets: VaultSecrets{EmbeddingKey: "secret/data/emb"}}
			},
		},
		{
			name:     "zero dimension",
			mutate:   func(c *Config) { c.Embedding.Dimension = 0 },
			errorMsg: "embedding dimension must be positive",
		},
		{
			name:     "zero timeout",
			mutate:   func(c *Config) { c.Embedding.Timeout = 0 },
			errorMsg: "embedding timeout must be positive",
		},
		{
			name:     "unknown pdf backend",
			mutate:   func(c *Config) { c.Document.PDFBackend = "poppler" },
			errorMsg: "unknown pdf backend: poppler",
		},
		{
			name:     "cache without address",
			mutate:   func(c *Config) { c.Cache.Enabled = true },
			errorMsg: "cache address is required",
		},
		{
			name:     "storage without bucket",
			mutate:   func(c *Config) { c.Storage = StorageConfig{Enabled: true, Endpoint: "minio:9000"} },
			errorMsg: "storage endpoint and bucket are required",
		},
		{
			name:     "unsupported default format",
			mutate:   func(c *Config) { c.App.DefaultFormat = "xml" },
			errorMsg: "invalid default format: xml",
		},
		{
			name:     "bad tls",
			mutate:   func(c *Config) { c.Server.TLS.Mode = TLSModeServer },
			errorMsg: "TLS configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd****6789", maskSecret("abcdef0123456789"))
}
