package cli

import (
	"context"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/document"
	"atsfit/internal/errors"
	"atsfit/internal/observability"
	"atsfit/internal/pipeline"
	"atsfit/internal/skills"
)

// runtime holds the components shared by the analyze, serve and worker commands
type runtime struct {
	cfg       *config.Config
	logger    *errors.Logger
	obs       *observability.Manager
	extractor *document.Extractor
	matcher   *skills.Matcher
	loader    *pipeline.ModelLoader
	models    *pipeline.Models
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*runtime, error) {
	obs, err := observability.NewManager(cfg.Observability, Version)
	if err != nil {
		return nil, err
	}

	extractor, err := document.NewExtractor(ctx, cfg.Document.PDFBackend)
	if err != nil {
		return nil, err
	}

	matcher, err := newMatcher(cfg.Skills)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		obs:       obs,
		extractor: extractor,
		matcher:   matcher,
		loader:    pipeline.NewModelLoader(cfg, extractor, logger, obs.Metrics()),
	}, nil
}

// newMatcher builds the skill matcher from the built-in or configured vocabulary
func newMatcher(cfg config.SkillsConfig) (*skills.Matcher, error) {
	vocab := skills.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		loaded, err := skills.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			return nil, err
		}
		vocab = loaded
	}
	return skills.NewMatcher(vocab, skills.WithWordBoundary(cfg.WordBoundary)), nil
}

// analyzer loads the models on first use and returns an analyzer over them
func (rt *runtime) analyzer(ctx context.Context) (*pipeline.Analyzer, error) {
	models, err := rt.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	rt.models = models

	return pipeline.NewAnalyzer(models, rt.matcher,
		pipeline.WithLogger(rt.logger),
		pipeline.WithMetrics(rt.obs.Metrics()),
		pipeline.WithTracer(rt.obs.Tracer("atsfit/pipeline")),
		pipeline.WithEmbedTimeout(rt.cfg.Embedding.Timeout),
	), nil
}

// Close releases the models and flushes telemetry
func (rt *runtime) Close() {
	if err := rt.models.Close(); err != nil {
		rt.logger.LogError(err, "Failed to close models")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.obs.Shutdown(ctx); err != nil {
		rt.logger.LogError(err, "Failed to shutdown observability")
	}
}
