package server

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"atsfit/internal/config"
)

// configureTLS attaches a TLS configuration to httpServer for the server and
// mutual modes. Certificates are served through the certificate manager so
// they can be reloaded without a restart.
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case config.TLSModeDisabled, "":
		return nil
	case config.TLSModeServer, config.TLSModeMutual:
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	manager := NewCertificateManager(s.TLSConfig, s.observability.Metrics(), s.Logger)
	if err := manager.Start(); err != nil {
		return err
	}
	s.CertificateManager = manager

	tlsConfig, err := s.buildTLSConfig(manager)
	if err != nil {
		return err
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// buildTLSConfig creates the TLS configuration backed by manager
func (s *Server) buildTLSConfig(manager *CertificateManager) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		CipherSuites:   cipherSuites(s.TLSConfig.CipherSuites),
		GetCertificate: manager.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == config.TLSModeMutual {
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		tlsConfig.GetConfigForClient = manager.ConfigForClient(tlsConfig)
	}
	return tlsConfig, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// clientAuthPolicy maps the configured policy, requiring verified client certificates by default
func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuites resolves suite names; unknown names are skipped and an empty
// result leaves the Go defaults in place
func cipherSuites(names []string) []uint16 {
	if len(names) == 0 {
		return nil
	}
	known := make(map[string]uint16)
	for _, suite := range tls.CipherSuites() {
		known[suite.Name] = suite.ID
	}

	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id, ok := known[name]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
