package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"atsfit/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds the KVv2 paths secrets are read from. An empty path skips that secret.
type VaultSecrets struct {
	APIKeys      string `mapstructure:"apiKeys"`      // key "keys", comma separated
	EmbeddingKey string `mapstructure:"embeddingKey"` // key "api_key"
	TLSCerts     string `mapstructure:"tlsCerts"`     // keys "cert", "key", "ca" (PEM content)
	Storage      string `mapstructure:"storage"`      // keys "access_key", "secret_key"
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault. It returns nil when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	apiConfig := api.DefaultConfig()
	if cfg.Address != "" {
		apiConfig.Address = cfg.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create vault client", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to connect to vault", err).
			WithContext("address", cfg.Address)
	}
	logger.Info("Connected to Vault",
		"address", cfg.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token and falls back to the token file
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read vault token file", err).
				WithContext("file", cfg.TokenFile)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeMissingAPIKey, "vault token is required when vault is enabled", nil)
	}
	return token, nil
}

// GetSecretV2 reads a KVv2 secret with its version
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return decodeKVv2(secret.Data, path)
}

// decodeKVv2 unpacks the data and metadata envelopes of a KVv2 response
func decodeKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the numeric encodings Vault and JSON decoding produce
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret reads a single string key of a secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, err := secret.String(key)
	if err != nil {
		return "", fmt.Errorf("%w in secret %s", err, path)
	}
	vc.logger.Debug("String secret retrieved from Vault", "path", path, "key", key, "masked_value", maskSecret(value))
	return value, nil
}

// String returns the string stored under key
func (s *VaultSecret) String(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	return str, nil
}

// ApplyVaultSecrets loads the configured secrets from Vault into cfg
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, cfg, logger)
}

// secretReader is the subset of VaultClient used to populate config
type secretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
}

func applySecrets(reader secretReader, cfg *Config, logger *errors.Logger) error {
	paths := cfg.Vault.Secrets
	loaders := []struct {
		name  string
		path  string
		apply func(*VaultSecret, *Config) error
	}{
		{"api keys", paths.APIKeys, applyAPIKeys},
		{"embedding key", paths.EmbeddingKey, applyEmbeddingKey},
		{"tls certificates", paths.TLSCerts, applyTLSCerts},
		{"storage credentials", paths.Storage, applyStorageCredentials},
	}

	for _, loader := range loaders {
		if loader.path == "" {
			continue
		}
		secret, err := reader.GetSecretV2(loader.path)
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", loader.name, "path", loader.path)
			return fmt.Errorf("failed to load %s from vault: %w", loader.name, err)
		}
		if err := loader.apply(secret, cfg); err != nil {
			return fmt.Errorf("failed to apply %s from vault: %w", loader.name, err)
		}
		logger.Info("Secret applied from Vault", "secret", loader.name, "version", secret.Version)
	}
	return nil
}

func applyAPIKeys(secret *VaultSecret, cfg *Config) error {
	raw, err := secret.String("keys")
	if err != nil {
		return err
	}
	if keys := splitAndTrim(raw); len(keys) > 0 {
		cfg.Server.APIKeys = keys
	}
	return nil
}

func applyEmbeddingKey(secret *VaultSecret, cfg *Config) error {
	key, err := secret.String("api_key")
	if err != nil {
		return err
	}
	if key != "" {
		cfg.Embedding.APIKey = key
	}
	return nil
}

func applyTLSCerts(secret *VaultSecret, cfg *Config) error {
	for _, legacy := range []string{"cert_file", "key_file", "ca_file"} {
		if _, ok := secret.Data[legacy]; ok {
			return fmt.Errorf("'%s' field is no longer supported. Store certificate content in '%s' field instead",
				legacy, strings.TrimSuffix(legacy, "_file"))
		}
	}

	targets := map[string]*string{
		"cert": &cfg.Server.TLS.CertContent,
		"key":  &cfg.Server.TLS.KeyContent,
		"ca":   &cfg.Server.TLS.CAContent,
	}
	for key, target := range targets {
		if content, ok := secret.Data[key].(string); ok && content != "" {
			*target = content
		}
	}
	return nil
}

func applyStorageCredentials(secret *VaultSecret, cfg *Config) error {
	accessKey, err := secret.String("access_key")
	if err != nil {
		return err
	}
	secretKey, err := secret.String("secret_key")
	if err != nil {
		return err
	}
	cfg.Storage.AccessKey = accessKey
	cfg.Storage.SecretKey = secretKey
	return nil
}
