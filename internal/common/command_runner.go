package common

import (
	"context"
	"fmt"
)

// CreateInputFunc builds the operation input from extracted document texts
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc logs the start of an operation
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs the command's work
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunDocumentCommand reads the documents named in args, runs operation on
// them and writes the formatted result.
func RunDocumentCommand[Input, Output any](
	ctx context.Context,
	fileProcessor *FileProcessor,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	outputHandler := NewOutputHandler(fileProcessor, fileProcessor.logger)

	contents, err := fileProcessor.ReadDocuments(ctx, args...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	logDetails(input, cmdConfig)

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
