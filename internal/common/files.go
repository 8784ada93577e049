package common

import (
	"fmt"
	"os"
	"path/filepath"

	"atsfit/internal/errors"
)

// ValidateInputFile checks that filename is a readable regular file no larger
// than maxSize bytes. A non-positive maxSize disables the size check.
func ValidateInputFile(filename string, maxSize int64) error {
	if filename == "" {
		return errors.NewValidationError(errors.ErrCodeMissingInput, "filename cannot be empty", nil)
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file does not exist: %s", filename), err)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot access file %s", filename), err)
	}
	if info.IsDir() {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("path is a directory, not a file: %s", filename), nil)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("file %s is %s, larger than the %s limit",
				filename, FormatFileSize(info.Size()), FormatFileSize(maxSize)), nil)
	}
	return nil
}

// ValidateOutputFile creates the parent directory of filename when missing.
// An empty filename means stdout and is always valid.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}

	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("cannot create directory %s", dir), err)
	}
	return nil
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
