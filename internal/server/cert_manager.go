package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/errors"
	"atsfit/internal/observability"
)

const defaultExpiryCheckInterval = time.Hour

// CertificateManager serves the current TLS certificate and CA pool and
// reloads them when the watched files change. A failed reload keeps the
// previous certificates in place.
type CertificateManager struct {
	mu sync.RWMutex

	config  config.TLSConfig
	cert    *tls.Certificate
	caPool  *x509.CertPool
	expiry  time.Time
	watcher *CertWatcher

	reloadCount    int64
	reloadFailures int64
	lastReload     time.Time
	lastError      string

	metrics *observability.Metrics
	logger  *errors.Logger
	stop    chan struct{}
	once    sync.Once
}

// NewCertificateManager creates a manager for cfg; call Start to load certificates
func NewCertificateManager(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) *CertificateManager {
	return &CertificateManager{
		config:  cfg,
		metrics: metrics,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start loads the certificates, then starts the file watcher when file based
// certificates have auto reload enabled, and the expiry monitor
func (cm *CertificateManager) Start() error {
	if err := cm.Reload(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	reload := cm.config.AutoReload
	if reload.Enabled && reload.FileWatcher.Enabled && cm.config.CertFile != "" {
		cm.watcher = NewCertWatcher(
			[]string{cm.config.CertFile, cm.config.KeyFile, cm.config.CAFile},
			reload.FileWatcher.DebounceDelay,
			cm.reloadFromWatcher,
			cm.logger,
		)
		if err := cm.watcher.Start(); err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	interval := reload.CheckInterval
	if interval <= 0 {
		interval = defaultExpiryCheckInterval
	}
	go cm.monitorExpiry(interval)
	return nil
}

// Stop stops the watcher and the expiry monitor
func (cm *CertificateManager) Stop() error {
	cm.once.Do(func() { close(cm.stop) })
	if cm.watcher != nil {
		return cm.watcher.Stop()
	}
	return nil
}

// Reload reads the certificate, key and (in mutual mode) CA from files or inline PEM
func (cm *CertificateManager) Reload() error {
	cert, expiry, err := loadKeyPair(cm.config)
	if err == nil && cm.config.Mode == config.TLSModeMutual {
		var pool *x509.CertPool
		pool, err = loadCAPool(cm.config)
		if err == nil {
			cm.mu.Lock()
			cm.caPool = pool
			cm.mu.Unlock()
		}
	}

	cm.mu.Lock()
	cm.reloadCount++
	cm.lastReload = time.Now()
	if err != nil {
		cm.reloadFailures++
		cm.lastError = err.Error()
	} else {
		cm.cert = &cert
		cm.expiry = expiry
		cm.lastError = ""
	}
	cm.mu.Unlock()

	ctx := context.Background()
	cm.metrics.RecordCertReload(ctx, err == nil)
	if err != nil {
		return err
	}
	cm.metrics.RecordCertExpiry(ctx, time.Until(expiry))
	cm.logger.Info("TLS certificates loaded", "expiry", expiry)
	return nil
}

func (cm *CertificateManager) reloadFromWatcher() {
	if err := cm.Reload(); err != nil {
		cm.logger.LogError(err, "Failed to reload TLS certificates, keeping previous ones")
	}
}

func (cm *CertificateManager) monitorExpiry(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if remaining, err := cm.CheckExpiry(); err == nil {
				cm.metrics.RecordCertExpiry(context.Background(), remaining)
			}
		case <-cm.stop:
			return
		}
	}
}

// GetCertificate returns the current server certificate for TLS handshakes
func (cm *CertificateManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.cert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	return cm.cert, nil
}

// ConfigForClient clones base with the current CA pool so that mutual TLS
// picks up a reloaded CA on the next handshake
func (cm *CertificateManager) ConfigForClient(base *tls.Config) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cm.mu.RLock()
		defer cm.mu.RUnlock()

		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		if cm.caPool != nil {
			cfg.ClientCAs = cm.caPool
		}
		return cfg, nil
	}
}

// CheckExpiry returns the time until the server certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.expiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cm.expiry), nil
}

// Status describes reload state for the health endpoint
func (cm *CertificateManager) Status() map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	status := map[string]any{
		"enabled":         cm.config.AutoReload.Enabled,
		"reload_count":    cm.reloadCount,
		"reload_failures": cm.reloadFailures,
		"last_reload":     cm.lastReload,
	}
	if cm.lastError != "" {
		status["last_error"] = cm.lastError
	}
	if cm.watcher != nil {
		status["file_watcher_running"] = cm.watcher.IsRunning()
		status["watched_files"] = cm.watcher.WatchedFiles()
	}
	return status
}

// loadKeyPair prefers inline PEM content over files
func loadKeyPair(cfg config.TLSConfig) (tls.Certificate, time.Time, error) {
	var cert tls.Certificate
	var err error
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return cert, time.Time{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return cert, time.Time{}, fmt.Errorf("failed to load server cert/key: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return cert, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	cert.Leaf = leaf
	return cert, leaf.NotAfter, nil
}

// loadCAPool reads the client CA bundle from inline PEM or a file
func loadCAPool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var pem []byte
	switch {
	case cfg.CAContent != "":
		pem = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pem = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}
