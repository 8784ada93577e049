// Package pipeline wires extraction, matching and scoring into a single
// analysis over shared, read-only models.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"atsfit/internal/classifier"
	"atsfit/internal/config"
	"atsfit/internal/document"
	"atsfit/internal/embedding"
	"atsfit/internal/errors"
	"atsfit/internal/observability"
	"atsfit/internal/similarity"
)

// Models are loaded once per process and never mutated afterwards
type Models struct {
	TFIDF      *similarity.TFIDF
	Classifier *classifier.Linear
	Embedder   embedding.Embedder
}

// Close releases the embedder's resources
func (m *Models) Close() error {
	if m == nil || m.Embedder == nil {
		return nil
	}
	return embedding.Close(m.Embedder)
}

// ModelLoader loads Models at most once. Concurrent callers wait for and
// share the first result, including its error.
type ModelLoader struct {
	cfg       *config.Config
	extractor *document.Extractor
	logger    *errors.Logger
	metrics   *observability.Metrics

	once   sync.Once
	loaded atomic.Bool
	models *Models
	err    error
}

// NewModelLoader creates a loader. extractor is only used when the TF-IDF
// model has to be fitted from the corpus directory.
func NewModelLoader(cfg *config.Config, extractor *document.Extractor, logger *errors.Logger, metrics *observability.Metrics) *ModelLoader {
	return &ModelLoader{
		cfg:       cfg,
		extractor: extractor,
		logger:    logger,
		metrics:   metrics,
	}
}

// Load returns the shared models, loading them on first use
func (l *ModelLoader) Load(ctx context.Context) (*Models, error) {
	l.once.Do(func() {
		l.models, l.err = l.load(ctx)
		if l.err != nil {
			l.logger.LogError(l.err, "Failed to load models")
			return
		}
		l.loaded.Store(true)
	})
	return l.models, l.err
}

// Loaded reports whether Load has completed successfully
func (l *ModelLoader) Loaded() bool {
	return l.loaded.Load()
}

func (l *ModelLoader) load(ctx context.Context) (*Models, error) {
	tfidf, err := l.loadTFIDF(ctx)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewEmbedder(ctx, l.cfg, l.logger, l.metrics)
	if err != nil {
		return nil, err
	}

	models := &Models{TFIDF: tfidf, Embedder: embedder}

	if path := l.cfg.Models.ClassifierPath; path != "" {
		clf, err := classifier.LoadLinear(path)
		if err != nil {
			_ = models.Close()
			return nil, err
		}
		want := embedder.Dimension() + tfidf.Size()
		if clf.Features() != want {
			_ = models.Close()
			return nil, errors.NewModelError(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("classifier expects %d features but embedding (%d) plus tf-idf (%d) gives %d",
					clf.Features(), embedder.Dimension(), tfidf.Size(), want), nil).
				WithContext("file", path)
		}
		models.Classifier = clf
		l.logger.Info("Classifier loaded", "file", path, "classes", len(clf.Classes))
	}

	l.logger.Info("Models loaded",
		"tfidf_features", tfidf.Size(),
		"tfidf_documents", tfidf.Documents(),
		"embedder", embedder.Name(),
		"embedding_dimension", embedder.Dimension(),
		"classifier", models.Classifier != nil)
	return models, nil
}

// loadTFIDF reads the persisted model, fitting one from the corpus directory
// when the file does not exist yet
func (l *ModelLoader) loadTFIDF(ctx context.Context) (*similarity.TFIDF, error) {
	mc := l.cfg.Models

	if mc.TFIDFPath != "" {
		model, err := similarity.LoadTFIDF(mc.TFIDFPath)
		if err == nil {
			l.logger.Debug("TF-IDF model read from disk", "file", mc.TFIDFPath)
			return model, nil
		}
		if !errors.HasCode(err, errors.ErrCodeFileNotFound) || mc.CorpusDir == "" {
			return nil, err
		}
		l.logger.Info("TF-IDF model not found, fitting from corpus", "file", mc.TFIDFPath, "corpus", mc.CorpusDir)
	}

	if mc.CorpusDir == "" {
		return nil, errors.NewConfigError(errors.ErrCodeModelLoadFailed,
			"no tf-idf model available: set models.tfidfPath or models.corpusDir", nil)
	}
	if l.extractor == nil {
		return nil, errors.NewInternalError(errors.ErrCodeModelLoadFailed, "document extractor required to fit tf-idf", nil)
	}

	model, err := FitCorpus(ctx, mc.CorpusDir, l.extractor,
		similarity.FitOptions{MinDF: mc.MinDF, MaxFeatures: mc.MaxFeatures}, l.logger)
	if err != nil {
		return nil, err
	}
	if mc.TFIDFPath != "" {
		if err := model.Save(mc.TFIDFPath); err != nil {
			l.logger.LogError(err, "Failed to persist fitted TF-IDF model")
		}
	}
	return model, nil
}
