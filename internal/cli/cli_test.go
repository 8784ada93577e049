package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsfit/internal/config"
	"atsfit/internal/errors"
	"atsfit/internal/types"
)

func execute(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	logger := errors.NewLoggerWithHandler(slog.DiscardHandler)
	err := Execute(context.Background(), cfg, logger)
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, &config.Config{}, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "atsfit version "+Version)
	assert.Contains(t, stdout, "Git commit:")
}

func TestAnalyzeRequiresResume(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}}}

	_, stderr, err := execute(t, cfg, "analyze")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingInput))
	assert.Contains(t, stderr, "please provide a resume")
}

func TestFitCommand(t *testing.T) {
	corpus := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "a.txt"), []byte("Senior Go engineer building distributed systems"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "b.md"), []byte("# Data analyst\n\nSQL dashboards and reporting"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "notes.bin"), []byte{0x00, 0x01}, 0o600))

	out := filepath.Join(t.TempDir(), "tfidf.json")
	cfg := &config.Config{
		Models:   config.ModelsConfig{TFIDFPath: out},
		Document: config.DocumentConfig{PDFBackend: "ledongthuc"},
	}

	stdout, _, err := execute(t, cfg, "fit", corpus)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fitted TF-IDF model on 2 documents")
	assert.FileExists(t, out)
}

func TestFitCommandMissingDirectory(t *testing.T) {
	cfg := &config.Config{
		Models:   config.ModelsConfig{TFIDFPath: filepath.Join(t.TempDir(), "tfidf.json")},
		Document: config.DocumentConfig{PDFBackend: "ledongthuc"},
	}

	_, _, err := execute(t, cfg, "fit", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("port", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("tls-mode", "", "")
	cmd.Flags().StringSlice("api-key", nil, "")

	v := viper.New()
	require.NoError(t, v.BindPFlag("server.port", cmd.Flags().Lookup("port")))
	require.NoError(t, v.BindPFlag("server.host", cmd.Flags().Lookup("host")))
	require.NoError(t, v.BindPFlag("server.tls.mode", cmd.Flags().Lookup("tls-mode")))
	require.NoError(t, v.BindPFlag("server.apikeys", cmd.Flags().Lookup("api-key")))
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--api-key", "a", "--api-key", "b"}))

	cfg := &config.Config{Server: config.ServerConfig{
		Host:    "127.0.0.1",
		Port:    "8080",
		TLS:     config.TLSConfig{Mode: config.TLSModeServer},
		APIKeys: []string{"old"},
	}}
	applyServeFlags(v, cfg)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, config.TLSModeServer, cfg.Server.TLS.Mode)
	assert.Equal(t, []string{"a", "b"}, cfg.Server.APIKeys)
}

func TestNewJob(t *testing.T) {
	tests := []struct {
		name     string
		object   string
		contents []string
		want     types.AnalysisJob
	}{
		{
			name:     "inline resume",
			contents: []string{"resume"},
			want:     types.AnalysisJob{ID: "job-1", Resume: "resume"},
		},
		{
			name:     "inline resume and job description",
			contents: []string{"resume", "jd"},
			want:     types.AnalysisJob{ID: "job-1", Resume: "resume", JobDescription: "jd"},
		},
		{
			name:   "stored resume",
			object: "uploads/cv.pdf",
			want:   types.AnalysisJob{ID: "job-1", ResumeObject: "uploads/cv.pdf"},
		},
		{
			name:     "stored resume with job description",
			object:   "uploads/cv.pdf",
			contents: []string{"jd"},
			want:     types.AnalysisJob{ID: "job-1", ResumeObject: "uploads/cv.pdf", JobDescription: "jd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newJob("job-1", tt.object, tt.contents))
		})
	}
}
