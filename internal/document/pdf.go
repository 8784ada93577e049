package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document/parser"
	ledongthuc "github.com/ledongthuc/pdf"
)

const pdfParseTimeout = 30 * time.Second

// einoPDF parses the whole document as a single text
type einoPDF struct {
	parser *pdf.PDFParser
}

func newEinoPDF(ctx context.Context) (*einoPDF, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino PDF parser: %w", err)
	}
	return &einoPDF{parser: p}, nil
}

func (e *einoPDF) Text(ctx context.Context, name string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pdfParseTimeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data), parser.WithURI(name))
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("no content in %s", name)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// ledongthucPDF reads the plain text layer with github.com/ledongthuc/pdf
type ledongthucPDF struct{}

func (ledongthucPDF) Text(_ context.Context, _ string, data []byte) (string, error) {
	r, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
