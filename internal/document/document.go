// Package document turns uploaded resume and job description files into plain text.
package document

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"atsfit/internal/errors"
)

// Backend names accepted for PDF extraction
const (
	PDFBackendEino       = "eino"
	PDFBackendLedongthuc = "ledongthuc"
)

var textExtensions = []string{".txt", ".md", ".markdown", ".text"}

// pdfReader extracts text from PDF bytes
type pdfReader interface {
	Text(ctx context.Context, name string, data []byte) (string, error)
}

// Extractor dispatches on the lowercased file extension
type Extractor struct {
	pdf pdfReader
}

// NewExtractor builds an Extractor using the named PDF backend
func NewExtractor(ctx context.Context, pdfBackend string) (*Extractor, error) {
	var reader pdfReader
	switch pdfBackend {
	case PDFBackendEino, "":
		eino, err := newEinoPDF(ctx)
		if err != nil {
			return nil, err
		}
		reader = eino
	case PDFBackendLedongthuc:
		reader = ledongthucPDF{}
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown pdf backend: %s", pdfBackend), nil)
	}
	return &Extractor{pdf: reader}, nil
}

// Supported reports whether filename has an extension Extract understands
func Supported(filename string) bool {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf", ".docx", ".html", ".htm":
		return true
	default:
		return slices.Contains(textExtensions, ext)
	}
}

// Extract returns the text content of data. Unknown extensions yield
// UNSUPPORTED_FORMAT; unreadable content yields INVALID_FORMAT.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var text string
	var err error
	switch {
	case ext == ".pdf":
		text, err = e.pdf.Text(ctx, filename, data)
	case ext == ".docx":
		text, err = docxText(data)
	case ext == ".html" || ext == ".htm":
		text, err = htmlText(data)
	case slices.Contains(textExtensions, ext):
		if !utf8.Valid(data) {
			err = fmt.Errorf("file is not valid UTF-8")
		}
		text = string(data)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported document type %q", ext), nil).
			WithContext("filename", filename)
	}

	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"failed to extract text", err).
			WithContext("filename", filename)
	}
	return text, nil
}
