package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsfit/internal/errors"
	"atsfit/internal/types"
)

type stubAnalyzer struct {
	err        error
	gotResume  string
	gotJD      string
	experience int
}

func (s *stubAnalyzer) Analyze(_ context.Context, resume, jd string) (types.ScoreBundle, error) {
	s.gotResume, s.gotJD = resume, jd
	if s.err != nil {
		return types.ScoreBundle{}, s.err
	}
	return types.ScoreBundle{ExperienceYears: s.experience}, nil
}

type upperExtractor struct{ gotName string }

func (u *upperExtractor) Extract(_ context.Context, name string, data []byte) (string, error) {
	u.gotName = name
	return "extracted:" + string(data), nil
}

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "object not found", nil)
	}
	return data, nil
}

type recordingPublisher struct {
	results []types.AnalysisResult
	err     error
}

func (r *recordingPublisher) PublishResult(_ context.Context, result any) error {
	if r.err != nil {
		return r.err
	}
	r.results = append(r.results, result.(types.AnalysisResult))
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleInlineResume(t *testing.T) {
	analyzer := &stubAnalyzer{experience: 4}
	pub := &recordingPublisher{}
	w := New(analyzer, &upperExtractor{}, nil, pub, nil)

	err := w.Handle(context.Background(), mustJSON(t, types.AnalysisJob{
		ID: "job-1", Resume: "resume text", JobDescription: "jd text",
	}))
	require.NoError(t, err)

	require.Len(t, pub.results, 1)
	got := pub.results[0]
	assert.Equal(t, "job-1", got.ID)
	require.NotNil(t, got.Bundle)
	assert.Equal(t, 4, got.Bundle.ExperienceYears)
	assert.Empty(t, got.Error)
	assert.Equal(t, "resume text", analyzer.gotResume)
	assert.Equal(t, "jd text", analyzer.gotJD)
}

func TestHandleAssignsID(t *testing.T) {
	pub := &recordingPublisher{}
	w := New(&stubAnalyzer{}, &upperExtractor{}, nil, pub, nil)

	require.NoError(t, w.Handle(context.Background(), []byte(`{"resume":"text"}`)))
	require.Len(t, pub.results, 1)
	_, err := uuid.Parse(pub.results[0].ID)
	assert.NoError(t, err)
}

func TestHandleStoredResume(t *testing.T) {
	analyzer := &stubAnalyzer{}
	extractor := &upperExtractor{}
	store := mapStore{"uploads/2025/cv.pdf": []byte("pdf bytes")}
	pub := &recordingPublisher{}
	w := New(analyzer, extractor, store, pub, nil)

	err := w.Handle(context.Background(), mustJSON(t, types.AnalysisJob{
		ID: "job-2", Resume: "ignored", ResumeObject: "uploads/2025/cv.pdf",
	}))
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", extractor.gotName)
	assert.Equal(t, "extracted:pdf bytes", analyzer.gotResume)
}

func TestHandleFailures(t *testing.T) {
	tests := []struct {
		name      string
		job       types.AnalysisJob
		store     ObjectStore
		analyzer  *stubAnalyzer
		wantErr   bool
		published bool
		code      string
	}{
		{
			name:      "missing resume is published",
			job:       types.AnalysisJob{ID: "a"},
			analyzer:  &stubAnalyzer{err: errors.NewValidationError(errors.ErrCodeMissingInput, "no resume", nil)},
			published: true,
			code:      errors.ErrCodeMissingInput,
		},
		{
			name:      "missing object is published",
			job:       types.AnalysisJob{ID: "b", ResumeObject: "nope.pdf"},
			store:     mapStore{},
			analyzer:  &stubAnalyzer{},
			published: true,
			code:      errors.ErrCodeFileNotFound,
		},
		{
			name:      "storage disabled is published",
			job:       types.AnalysisJob{ID: "c", ResumeObject: "cv.pdf"},
			analyzer:  &stubAnalyzer{},
			published: true,
			code:      errors.ErrCodeInvalidConfig,
		},
		{
			name:     "embedding outage is retried",
			job:      types.AnalysisJob{ID: "d", Resume: "text", JobDescription: "jd"},
			analyzer: &stubAnalyzer{err: errors.NewModelError(errors.ErrCodeEmbeddingFailed, "down", nil)},
			wantErr:  true,
		},
		{
			name:     "unknown error is retried",
			job:      types.AnalysisJob{ID: "e", Resume: "text"},
			analyzer: &stubAnalyzer{err: stderrors.New("boom")},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			w := New(tt.analyzer, &upperExtractor{}, tt.store, pub, nil)

			err := w.Handle(context.Background(), mustJSON(t, tt.job))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if !tt.published {
				assert.Empty(t, pub.results)
				return
			}
			require.Len(t, pub.results, 1)
			assert.Equal(t, tt.job.ID, pub.results[0].ID)
			assert.Nil(t, pub.results[0].Bundle)
			assert.Equal(t, tt.code, pub.results[0].Code)
			assert.NotEmpty(t, pub.results[0].Error)
		})
	}
}

func TestHandleInvalidJSON(t *testing.T) {
	pub := &recordingPublisher{}
	w := New(&stubAnalyzer{}, &upperExtractor{}, nil, pub, nil)

	err := w.Handle(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	assert.Empty(t, pub.results)
}

func TestHandlePublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: stderrors.New("channel closed")}
	w := New(&stubAnalyzer{}, &upperExtractor{}, nil, pub, nil)

	err := w.Handle(context.Background(), []byte(`{"id":"x","resume":"text"}`))
	assert.EqualError(t, err, "channel closed")
}
