package server

import (
	"fmt"
	"net"

	"atsfit/internal/common"
	"atsfit/internal/config"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayTLSInfo()
	s.displayAuthInfo()
	s.displayLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health    - Health check")
	fmt.Println("  GET  /stats     - Server statistics")
	fmt.Println("  POST /analyze   - Score a resume, optionally against a job description (requires API key)")
	fmt.Println("  POST /report    - Score and render a PDF report (requires API key)")
}

func (s *Server) displayTLSInfo() {
	addr := net.JoinHostPort(s.Host, s.Port)
	switch s.TLSConfig.Mode {
	case config.TLSModeServer:
		fmt.Printf("Listening on https://%s (server-only TLS)\n", addr)
	case config.TLSModeMutual:
		fmt.Printf("Listening on https://%s (mutual TLS, client certificates required)\n", addr)
	default:
		fmt.Printf("Listening on http://%s (TLS disabled)\n", addr)
	}
	if s.TLSConfig.AutoReload.Enabled && s.TLSConfig.AutoReload.FileWatcher.Enabled {
		fmt.Println("TLS auto-reload: ENABLED (file watching)")
	}
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		return
	}
	fmt.Println("API authentication: DISABLED (no API keys configured)")
	fmt.Println("WARNING: API endpoints are publicly accessible!")
}

func (s *Server) displayLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %s\n", common.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}

	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
