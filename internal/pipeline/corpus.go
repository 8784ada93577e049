package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"atsfit/internal/document"
	"atsfit/internal/errors"
	"atsfit/internal/similarity"
	"atsfit/internal/textnorm"
)

// FitCorpus fits a TF-IDF model over every supported document below dir.
// Documents that fail to extract are logged and skipped.
func FitCorpus(ctx context.Context, dir string, extractor *document.Extractor, opts similarity.FitOptions, logger *errors.Logger) (*similarity.TFIDF, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "corpus directory not found", err).
			WithContext("dir", dir)
	}
	if !info.IsDir() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "corpus path is not a directory", nil).
			WithContext("dir", dir)
	}

	var docs []string
	skipped := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !document.Supported(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.LogError(err, "Skipping unreadable corpus file", "file", path)
			skipped++
			return nil
		}
		text, err := extractor.Extract(ctx, path, data)
		if err != nil {
			logger.LogError(err, "Skipping corpus file", "file", path)
			skipped++
			return nil
		}
		docs = append(docs, textnorm.Normalize(text))
		return nil
	})
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read corpus", err).
			WithContext("dir", dir)
	}

	logger.Info("Fitting TF-IDF model", "dir", dir, "documents", len(docs), "skipped", skipped)
	return similarity.Fit(docs, opts)
}
