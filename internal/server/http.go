// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/embedding"
	"atsfit/internal/errors"
	"atsfit/internal/observability"
	"atsfit/internal/types"
)

// AnalyzeRequest is the JSON body accepted by /analyze and /report
type AnalyzeRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"jobDescription"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Analyzer scores a resume, optionally against a job description
type Analyzer interface {
	Analyze(ctx context.Context, resume, jobDescription string) (types.ScoreBundle, error)
}

// Extractor turns an uploaded document into plain text
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ReportStore archives rendered PDF reports and returns their object key
type ReportStore interface {
	PutReport(ctx context.Context, data []byte) (string, error)
}

// Services are the pipeline components the handlers depend on. Archive and
// Embedder may be nil.
type Services struct {
	Analyzer     Analyzer
	Extractor    Extractor
	Archive      ReportStore
	Embedder     embedding.Embedder
	ModelsLoaded func() bool
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig          config.TLSConfig
	CertificateManager *CertificateManager

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	services      Services
	observability *observability.Manager
	now           func() time.Time

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
	Services       Services
	Observability  *observability.Manager
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	if cfg.Services.ModelsLoaded == nil {
		cfg.Services.ModelsLoaded = func() bool { return cfg.Services.Analyzer != nil }
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		services:       cfg.Services,
		observability:  cfg.Observability,
		now:            time.Now,
		Logger:         logger,
	}
}
