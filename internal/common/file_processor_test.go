package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsfit/internal/errors"
	"atsfit/internal/types"
)

// upperExtractor uppercases text files and rejects everything else
type upperExtractor struct{}

func (upperExtractor) Extract(_ context.Context, filename string, data []byte) (string, error) {
	if filepath.Ext(filename) != ".txt" {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat, "unsupported", nil)
	}
	return strings.ToUpper(string(data)), nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateInputFile(t *testing.T) {
	small := writeTemp(t, "small.txt", "hello")
	big := writeTemp(t, "big.txt", strings.Repeat("x", 2048))

	tests := []struct {
		name    string
		path    string
		maxSize int64
		code    string
	}{
		{"valid", small, 1024, ""},
		{"size limit disabled", big, 0, ""},
		{"empty name", "", 0, errors.ErrCodeMissingInput},
		{"missing", filepath.Join(t.TempDir(), "nope.txt"), 0, errors.ErrCodeFileNotFound},
		{"directory", t.TempDir(), 0, errors.ErrCodeInvalidFormat},
		{"too large", big, 1024, errors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.path, tt.maxSize)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		0:                "0 B",
		1023:             "1023 B",
		1024:             "1.0 KB",
		1536:             "1.5 KB",
		10 * 1024 * 1024: "10.0 MB",
	}
	for size, want := range tests {
		assert.Equal(t, want, FormatFileSize(size))
	}
}

func TestReadDocuments(t *testing.T) {
	fp := NewFileProcessor(nil, upperExtractor{}, 1024)
	a := writeTemp(t, "a.txt", "resume")
	b := writeTemp(t, "b.txt", "job")

	got, err := fp.ReadDocuments(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"RESUME", "JOB"}, got)

	_, err = fp.ReadDocuments(context.Background(), a, writeTemp(t, "c.odt", "x"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat))
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	fp := NewFileProcessor(nil, upperExtractor{}, 0)
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")

	require.NoError(t, fp.WriteFile(path, []byte("{}")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestHandleOutput(t *testing.T) {
	fp := NewFileProcessor(nil, upperExtractor{}, 0)
	r := types.Report{Bundle: types.ScoreBundle{EducationLevel: types.EducationPhD}}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		oh := NewOutputHandler(fp, nil)
		oh.stdout = &buf

		require.NoError(t, oh.HandleOutput(r, CommandConfig{OutputFormat: "json"}))
		assert.Contains(t, buf.String(), `"education_level": "PhD"`)
	})

	t.Run("pdf needs a file", func(t *testing.T) {
		oh := NewOutputHandler(fp, nil)
		err := oh.HandleOutput(r, CommandConfig{OutputFormat: "pdf"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	})

	t.Run("pdf to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "report.pdf")
		oh := NewOutputHandler(fp, nil)

		require.NoError(t, oh.HandleOutput(r, CommandConfig{OutputFormat: "pdf", OutputFile: path}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	})

	t.Run("unknown format", func(t *testing.T) {
		oh := NewOutputHandler(fp, nil)
		err := oh.HandleOutput(r, CommandConfig{OutputFormat: "xml"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
	})
}

func TestRunDocumentCommand(t *testing.T) {
	fp := NewFileProcessor(nil, upperExtractor{}, 0)
	out := filepath.Join(t.TempDir(), "result.json")
	resume := writeTemp(t, "resume.txt", "python")

	var logged int
	err := RunDocumentCommand(context.Background(), fp,
		CommandConfig{OutputFile: out, OutputFormat: "json"},
		[]string{resume},
		func(contents []string) (string, error) { return contents[0], nil },
		func(_ context.Context, in string) (map[string]string, error) {
			return map[string]string{"text": in}, nil
		},
		func(in string, _ CommandConfig) { logged = len(in) },
	)
	require.NoError(t, err)
	assert.Equal(t, len("PYTHON"), logged)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text": "PYTHON"`)
}
