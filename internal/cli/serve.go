package cli

import (
	"fmt"

	"atsfit/internal/config"
	"atsfit/internal/server"
	"atsfit/internal/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for resume scoring",
	Long: `Start an HTTP server that exposes the scoring pipeline.

Available endpoints:
- POST /analyze: Score a resume (JSON or multipart upload) and return the score bundle
- POST /report: Score a resume and return the PDF report
- GET /health: Model, embedding, cache and certificate health
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

// serveFlags only tracks flags set on the command line
var serveFlags = viper.New()

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	serveCmd.Flags().StringSlice("api-key", nil, "Accepted API key, repeatable (overrides config)")

	bindFlag := func(key, flagName string) {
		if err := serveFlags.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("server.tls.mode", "tls-mode")
	bindFlag("server.tls.certfile", "cert-file")
	bindFlag("server.tls.keyfile", "key-file")
	bindFlag("server.tls.cafile", "ca-file")
	bindFlag("server.apikeys", "api-key")
}

// applyServeFlags copies command line overrides onto the loaded configuration
func applyServeFlags(v *viper.Viper, cfg *config.Config) {
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetString("server.port")
	}
	if v.IsSet("server.host") {
		cfg.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.tls.mode") {
		cfg.Server.TLS.Mode = v.GetString("server.tls.mode")
	}
	if v.IsSet("server.tls.certfile") {
		cfg.Server.TLS.CertFile = v.GetString("server.tls.certfile")
	}
	if v.IsSet("server.tls.keyfile") {
		cfg.Server.TLS.KeyFile = v.GetString("server.tls.keyfile")
	}
	if v.IsSet("server.tls.cafile") {
		cfg.Server.TLS.CAFile = v.GetString("server.tls.cafile")
	}
	if v.IsSet("server.apikeys") {
		cfg.Server.APIKeys = v.GetStringSlice("server.apikeys")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeFlags(serveFlags, cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	rt, err := newRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Load models before accepting traffic so /health reflects reality
	analyzer, err := rt.analyzer(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	services := server.Services{
		Analyzer:     analyzer,
		Extractor:    rt.extractor,
		Embedder:     rt.models.Embedder,
		ModelsLoaded: rt.loader.Loaded,
	}
	if cfg.Storage.Enabled {
		archive, err := storage.NewReportArchive(cmd.Context(), cfg.Storage, logger)
		if err != nil {
			return err
		}
		services.Archive = archive
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
		Services:       services,
		Observability:  rt.obs,
	}
	return server.NewServer(cfg, serverCfg, logger).Start(cmd.Context())
}
