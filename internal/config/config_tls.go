package config

import (
	"fmt"
	"slices"
)

// TLS modes accepted by the server
const (
	TLSModeDisabled = "disabled"
	TLSModeServer   = "server"
	TLSModeMutual   = "mutual"
)

var (
	clientAuthPolicies = []string{"", "require", "request", "verify"}
	tlsVersions        = []string{"", "1.2", "1.3"}
)

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if !slices.Contains(tlsVersions, tls.MinVersion) {
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}

	switch tls.Mode {
	case TLSModeDisabled:
		return nil
	case TLSModeServer, TLSModeMutual:
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	sources := []pemSource{
		{name: "cert", file: tls.CertFile, content: tls.CertContent, required: true},
		{name: "key", file: tls.KeyFile, content: tls.KeyContent, required: true},
		{name: "ca", file: tls.CAFile, content: tls.CAContent, required: tls.Mode == TLSModeMutual},
	}
	for _, src := range sources {
		if err := src.validate(tls.Mode); err != nil {
			return err
		}
	}

	if tls.Mode == TLSModeMutual && !slices.Contains(clientAuthPolicies, tls.ClientAuthPolicy) {
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
	}

	return nil
}

// pemSource is one PEM input that may come from a file or inline content
type pemSource struct {
	name     string
	file     string
	content  string
	required bool
}

func (p pemSource) validate(mode string) error {
	if p.file != "" && p.content != "" {
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", p.name, p.name)
	}
	if p.required && p.file == "" && p.content == "" {
		return fmt.Errorf("TLS %s is required for %s mode (provide either %sFile or %sContent)", p.name, mode, p.name, p.name)
	}
	return nil
}
