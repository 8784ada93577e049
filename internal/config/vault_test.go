package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"atsfit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]*VaultSecret

func (f fakeSecrets) GetSecretV2(path string) (*VaultSecret, error) {
	secret, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return secret, nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "int value", input: 7, expected: 7},
		{name: "float64 value", input: float64(42), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/x")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDecodeKVv2(t *testing.T) {
	secret, err := decodeKVv2(map[string]any{
		"data":     map[string]any{"api_key": "abc"},
		"metadata": map[string]any{"version": float64(3)},
	}, "secret/data/embedding")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	_, err = decodeKVv2(map[string]any{"api_key": "abc"}, "secret/data/kv1")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = decodeKVv2(map[string]any{"data": map[string]any{}}, "secret/data/nometa")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  s.file-token\n"), 0o600))

	token, err := resolveVaultToken(VaultConfig{Token: "s.inline", TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "s.inline", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "s.file-token", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(dir, "missing")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotReadable))

	_, err = resolveVaultToken(VaultConfig{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
		APIKeys:      "auth",
		EmbeddingKey: "embedding",
		TLSCerts:     "tls",
		Storage:      "storage",
	}}}
	reader := fakeSecrets{
		"auth":      {Data: map[string]any{"keys": "k1, k2 ,"}, Version: 1},
		"embedding": {Data: map[string]any{"api_key": "gemini-key"}, Version: 2},
		"tls":       {Data: map[string]any{"cert": "CERT", "key": "KEY"}, Version: 1},
		"storage":   {Data: map[string]any{"access_key": "minio", "secret_key": "minio123"}, Version: 4},
	}

	require.NoError(t, applySecrets(reader, cfg, nil))

	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "gemini-key", cfg.Embedding.APIKey)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
	assert.Equal(t, "minio", cfg.Storage.AccessKey)
	assert.Equal(t, "minio123", cfg.Storage.SecretKey)
}

func TestApplySecretsSkipsEmptyPaths(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{APIKey: "from-env"}}
	require.NoError(t, applySecrets(fakeSecrets{}, cfg, nil))
	assert.Equal(t, "from-env", cfg.Embedding.APIKey)
}

func TestApplySecretsErrors(t *testing.T) {
	tests := []struct {
		name     string
		secrets  VaultSecrets
		reader   fakeSecrets
		errorMsg string
	}{
		{
			name:     "missing secret",
			secrets:  VaultSecrets{EmbeddingKey: "embedding"},
			reader:   fakeSecrets{},
			errorMsg: "failed to load embedding key",
		},
		{
			name:     "missing key",
			secrets:  VaultSecrets{Storage: "storage"},
			reader:   fakeSecrets{"storage": {Data: map[string]any{"access_key": "a"}}},
			errorMsg: "key 'secret_key' not found",
		},
		{
			name:     "legacy tls field",
			secrets:  VaultSecrets{TLSCerts: "tls"},
			reader:   fakeSecrets{"tls": {Data: map[string]any{"cert_file": "/etc/cert.pem"}}},
			errorMsg: "'cert_file' field is no longer supported",
		},
		{
			name:     "non string value",
			secrets:  VaultSecrets{APIKeys: "auth"},
			reader:   fakeSecrets{"auth": {Data: map[string]any{"keys": 12}}},
			errorMsg: "is not a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Vault: VaultConfig{Secrets: tt.secrets}}
			err := applySecrets(tt.reader, cfg, nil)
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(cfg, nil))
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, client)

	_, err = client.GetSecretV2("secret/data/x")
	assert.ErrorContains(t, err, "vault client not initialized")
}
