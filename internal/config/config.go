package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by viper
const EnvPrefix = "ATSFIT"

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (ATSFIT_EMBEDDING_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	Models        ModelsConfig        `mapstructure:"models"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Skills        SkillsConfig        `mapstructure:"skills"`
	Document      DocumentConfig      `mapstructure:"document"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ModelsConfig locates the lexical and classification model artifacts
type ModelsConfig struct {
	TFIDFPath      string `mapstructure:"tfidfPath"`      // Fitted TF-IDF model (JSON)
	CorpusDir      string `mapstructure:"corpusDir"`      // Documents to fit on when TFIDFPath does not exist
	ClassifierPath string `mapstructure:"classifierPath"` // Optional linear classifier (JSON)
	MinDF          int    `mapstructure:"minDF"`
	MaxFeatures    int    `mapstructure:"maxFeatures"`
}

// EmbeddingConfig holds sentence embedding provider configuration
type EmbeddingConfig struct {
	Provider       string               `mapstructure:"provider"` // "hashing" or "gemini"
	Model          string               `mapstructure:"model"`
	APIKey         string               `mapstructure:"apiKey"`
	Dimension      int                  `mapstructure:"dimension"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// SkillsConfig controls skill dictionary matching
type SkillsConfig struct {
	VocabularyFile string `mapstructure:"vocabularyFile"` // Optional YAML vocabulary replacing the built-in one
	WordBoundary   bool   `mapstructure:"wordBoundary"`
}

// DocumentConfig controls text extraction from uploaded documents
type DocumentConfig struct {
	PDFBackend string `mapstructure:"pdfBackend"` // "eino" or "ledongthuc"
}

// CacheConfig holds the Redis embedding cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig holds the S3-compatible report archive configuration
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"useSSL"`
	Location  string `mapstructure:"location"`
}

// QueueConfig holds RabbitMQ worker configuration
type QueueConfig struct {
	URL               string `mapstructure:"url"`
	JobsQueue         string `mapstructure:"jobsQueue"`
	ResultsExchange   string `mapstructure:"resultsExchange"`
	ResultsRoutingKey string `mapstructure:"resultsRoutingKey"`
	Prefetch          int    `mapstructure:"prefetch"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile   string `mapstructure:"caFile"`   // CA certificate file for client cert verification

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"`       // "1.2" or "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`     // Allowed cipher suites (optional)
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig holds configuration for certificate hot reload
type AutoReloadConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	CheckInterval time.Duration     `mapstructure:"checkInterval"` // Interval for recording certificate expiry
	FileWatcher   FileWatcherConfig `mapstructure:"fileWatcher"`
}

// FileWatcherConfig holds configuration for file-based certificate watching
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles groups of application metrics
type CustomMetricsConfig struct {
	Analysis       AnalysisMetricsConfig       `mapstructure:"analysis"`
	Embedding      EmbeddingMetricsConfig      `mapstructure:"embedding"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AnalysisMetricsConfig holds analysis metrics configuration
type AnalysisMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackScores   bool `mapstructure:"trackScores"`
}

// EmbeddingMetricsConfig holds embedding metrics configuration
type EmbeddingMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackCache    bool `mapstructure:"trackCache"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertExpiry bool `mapstructure:"trackCertExpiry"`
	TrackReports    bool `mapstructure:"trackReports"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, searchFiles bool) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", EnvPrefix)

	configFileUsed := ""
	if searchFiles {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/atsfit/")
		v.AddConfigPath("$HOME/.atsfit")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/atsfit/, $HOME/.atsfit, .")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Println("[CONFIG] No config file found, using defaults and environment variables")
		} else {
			configFileUsed = v.ConfigFileUsed()
			log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "hashing":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding dimension must be positive for the hashing provider")
		}
	case "gemini":
		if c.Embedding.APIKey == "" && !(c.Vault.Enabled && c.Vault.Secrets.EmbeddingKey != "") {
			return fmt.Errorf("embedding API key is required for gemini (set %s_EMBEDDING_APIKEY environment variable)", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown embedding provider: %s (must be 'hashing' or 'gemini')", c.Embedding.Provider)
	}

	if c.Embedding.Timeout <= 0 {
		return fmt.Errorf("embedding timeout must be positive")
	}

	switch c.Document.PDFBackend {
	case "eino", "ledongthuc":
	default:
		return fmt.Errorf("unknown pdf backend: %s (must be 'eino' or 'ledongthuc')", c.Document.PDFBackend)
	}

	if c.Cache.Enabled && c.Cache.Address == "" {
		return fmt.Errorf("cache address is required when the cache is enabled")
	}

	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("storage endpoint and bucket are required when storage is enabled")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
