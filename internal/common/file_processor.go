package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"atsfit/internal/errors"
)

// Extractor turns document bytes into text
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// FileProcessor reads input documents and writes command output
type FileProcessor struct {
	logger    *errors.Logger
	extractor Extractor
	maxSize   int64
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger, extractor Extractor, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, extractor: extractor, maxSize: maxSize}
}

// ReadFile validates and reads filename
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	if err := ValidateInputFile(filename, fp.maxSize); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	return content, nil
}

// ReadDocument reads filename and extracts its text
func (fp *FileProcessor) ReadDocument(ctx context.Context, filename string) (string, error) {
	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	text, err := fp.extractor.Extract(ctx, filename, data)
	if err != nil {
		return "", err
	}
	fp.logger.Debug("Document read",
		"filename", filename,
		"size", FormatFileSize(int64(len(data))),
		"chars", len(text))
	return text, nil
}

// ReadDocuments extracts the text of every file, in order
func (fp *FileProcessor) ReadDocuments(ctx context.Context, filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))
	for i, filename := range filenames {
		text, err := fp.ReadDocument(ctx, filename)
		if err != nil {
			return nil, err
		}
		contents[i] = text
	}
	return contents, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError(errors.ErrCodeFileWriteFailed,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
