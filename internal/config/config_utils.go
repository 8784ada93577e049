package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyEmbeddingKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks reads the comma separated key list from the environment
// when nothing else configured keys, and trims whatever was decoded
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitAndTrim(os.Getenv(EnvPrefix + "_SERVER_APIKEYS"))
		return
	}
	c.Server.APIKeys = splitAndTrim(strings.Join(c.Server.APIKeys, ","))
}

// applyEmbeddingKeyFallbacks honours the conventional GEMINI_API_KEY variable
func (c *Config) applyEmbeddingKeyFallbacks() {
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "gemini" {
		c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == TLSModeMutual && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != TLSModeDisabled {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// maskSecret keeps a short prefix and suffix of long secrets
func maskSecret(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	default:
		return "****"
	}
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		EnvPrefix + "_EMBEDDING_PROVIDER",
		EnvPrefix + "_EMBEDDING_MODEL",
		EnvPrefix + "_EMBEDDING_APIKEY",
		EnvPrefix + "_MODELS_TFIDFPATH",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		hasEnvVars = true
		if strings.Contains(strings.ToLower(envVar), "key") {
			log.Printf("[CONFIG]   %s=***MASKED***", envVar)
		} else {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Embedding Provider: %s", c.Embedding.Provider)
	log.Printf("[CONFIG] Embedding Model: %s", c.Embedding.Model)
	if c.Embedding.APIKey != "" {
		log.Println("[CONFIG] Embedding API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Embedding API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] TF-IDF Model: %s", c.Models.TFIDFPath)
	log.Printf("[CONFIG] Classifier: %s", valueOrNone(c.Models.ClassifierPath))
	log.Printf("[CONFIG] PDF Backend: %s", c.Document.PDFBackend)
	log.Printf("[CONFIG] Skill Word Boundary: %t", c.Skills.WordBoundary)
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Cache Enabled: %t", c.Cache.Enabled)
	log.Printf("[CONFIG] Storage Enabled: %t", c.Storage.Enabled)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func valueOrNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
