package cli

import (
	"context"
	"fmt"

	"atsfit/internal/config"
	"atsfit/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "atsfit",
	Short: "Score how well a resume fits a job description",
	Long: `atsfit scores resumes the way an applicant tracking system would. Given a
resume and, optionally, a job description it reports skill coverage, semantic
and lexical similarity, experience and education fit, a predicted job category
and a composite ATS score from 0 to 100.

It runs as a one-shot CLI, an HTTP API or a RabbitMQ worker.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(versionCmd)
}
