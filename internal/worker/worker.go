// Package worker runs queued analysis jobs.
package worker

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/google/uuid"

	"atsfit/internal/errors"
	"atsfit/internal/types"
)

// Analyzer scores a resume against an optional job description
type Analyzer interface {
	Analyze(ctx context.Context, resume, jd string) (types.ScoreBundle, error)
}

// Extractor turns a stored document into text
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ObjectStore fetches uploaded resumes by key
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ResultPublisher delivers finished results
type ResultPublisher interface {
	PublishResult(ctx context.Context, result any) error
}

// Worker turns AnalysisJob messages into published AnalysisResult messages
type Worker struct {
	analyzer  Analyzer
	extractor Extractor
	store     ObjectStore
	publisher ResultPublisher
	logger    *errors.Logger
}

// New creates a Worker. store may be nil when resumes only arrive inline.
func New(analyzer Analyzer, extractor Extractor, store ObjectStore, publisher ResultPublisher, logger *errors.Logger) *Worker {
	return &Worker{
		analyzer:  analyzer,
		extractor: extractor,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle processes one job message. Permanent failures are published as
// error results and acknowledged. Transient failures are returned so the
// message is requeued without publishing anything.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var job types.AnalysisJob
	if err := json.Unmarshal(body, &job); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid job message", err)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	result, err := w.Process(ctx, job)
	if err != nil && !permanent(err) {
		return err
	}
	if err := w.publisher.PublishResult(ctx, result); err != nil {
		return err
	}
	w.logger.Info("Job processed", "job_id", job.ID, "error_code", result.Code)
	return nil
}

// Process analyzes a single job. On failure the returned result carries the
// error message and code alongside the error itself.
func (w *Worker) Process(ctx context.Context, job types.AnalysisJob) (types.AnalysisResult, error) {
	result := types.AnalysisResult{ID: job.ID}

	resume, err := w.resumeText(ctx, job)
	if err == nil {
		var bundle types.ScoreBundle
		bundle, err = w.analyzer.Analyze(ctx, resume, job.JobDescription)
		if err == nil {
			result.Bundle = &bundle
			return result, nil
		}
	}

	w.logger.LogError(err, "Job failed", "job_id", job.ID)
	result.Error = err.Error()
	if appErr, ok := errors.AsAppError(err); ok {
		result.Code = appErr.Code
		result.Error = appErr.Message
	}
	return result, err
}

// permanent reports whether retrying the job cannot change its outcome
func permanent(err error) bool {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeConfig:
		return true
	}
	return appErr.Code == errors.ErrCodeFileNotFound
}

// resumeText prefers the stored object over inline text
func (w *Worker) resumeText(ctx context.Context, job types.AnalysisJob) (string, error) {
	if job.ResumeObject == "" {
		return job.Resume, nil
	}
	if w.store == nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"job references a stored resume but object storage is disabled", nil).
			WithContext("object", job.ResumeObject)
	}

	data, err := w.store.Get(ctx, job.ResumeObject)
	if err != nil {
		return "", err
	}
	name := path.Base(strings.TrimSuffix(job.ResumeObject, "/"))
	return w.extractor.Extract(ctx, name, data)
}
