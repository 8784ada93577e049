package common

import (
	"fmt"
	"io"
	"os"

	"atsfit/internal/errors"
	"atsfit/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	stdout        io.Writer
	logger        *errors.Logger
}

// NewOutputHandler creates a new output handler writing to stdout
func NewOutputHandler(fileProcessor *FileProcessor, logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: fileProcessor,
		registry:      formatters.GlobalRegistry,
		stdout:        os.Stdout,
		logger:        logger,
	}
}

// HandleOutput formats data and writes it to the configured destination.
// Binary formats must be written to a file.
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if formatters.IsBinary(config.OutputFormat) && config.OutputFile == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s output requires --output", config.OutputFormat), nil)
	}
	if err := ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err := oh.stdout.Write(output)
		return err
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile,
		"format", config.OutputFormat,
		"size", FormatFileSize(int64(len(output))))
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
