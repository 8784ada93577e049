package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"atsfit/internal/classifier"
	"atsfit/internal/errors"
	"atsfit/internal/extract"
	"atsfit/internal/observability"
	"atsfit/internal/scoring"
	"atsfit/internal/similarity"
	"atsfit/internal/skills"
	"atsfit/internal/textnorm"
	"atsfit/internal/types"
)

const defaultEmbedTimeout = 30 * time.Second

// Analyzer scores resumes against optional job descriptions. It holds no
// per-request state and is safe for concurrent use.
type Analyzer struct {
	models       *Models
	matcher      *skills.Matcher
	logger       *errors.Logger
	metrics      *observability.Metrics
	tracer       trace.Tracer
	embedTimeout time.Duration
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger
func WithLogger(logger *errors.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithMetrics records analysis metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Analyzer) { a.metrics = metrics }
}

// WithEmbedTimeout bounds every embedding call
func WithEmbedTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.embedTimeout = d
		}
	}
}

// WithTracer overrides the global tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) { a.tracer = tracer }
}

// NewAnalyzer creates an Analyzer over already loaded models
func NewAnalyzer(models *Models, matcher *skills.Matcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		models:       models,
		matcher:      matcher,
		tracer:       otel.Tracer("atsfit/pipeline"),
		embedTimeout: defaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts resume attributes and, when jd is not blank, scores the
// resume against it. A blank resume is rejected with MISSING_INPUT before
// any work is done.
func (a *Analyzer) Analyze(ctx context.Context, resume, jd string) (bundle types.ScoreBundle, err error) {
	if strings.TrimSpace(resume) == "" {
		return types.ScoreBundle{}, errors.NewValidationError(errors.ErrCodeMissingInput,
			"please provide a resume document or paste resume text", nil)
	}
	if a.models == nil || a.models.TFIDF == nil || a.models.Embedder == nil {
		return types.ScoreBundle{}, errors.NewInternalError(errors.ErrCodeModelLoadFailed, "analyzer models not loaded", nil)
	}

	jobMode := strings.TrimSpace(jd) != ""
	mode := observability.ModeResumeOnly
	if jobMode {
		mode = observability.ModeJobMatch
	}

	ctx, span := a.tracer.Start(ctx, "pipeline.analyze",
		trace.WithAttributes(
			attribute.String("analysis.mode", mode),
			attribute.Int("resume.length", len(resume)),
			attribute.Int("jd.length", len(jd)),
		))
	start := time.Now()
	defer func() {
		var score float64
		if bundle.JobMatch != nil {
			score = bundle.FinalScore
			span.SetAttributes(attribute.Float64("analysis.final_score", score))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		a.metrics.RecordAnalysis(ctx, mode, err == nil, time.Since(start), score)
	}()

	bundle = types.ScoreBundle{
		ContactInfo:     extract.ContactDetails(resume),
		ResumeSkills:    a.matcher.Extract(resume),
		ExperienceYears: extract.ExperienceYears(resume),
		EducationLevel:  extract.EducationLevel(resume),
	}
	resumeNorm := textnorm.Normalize(resume)

	needResumeEmbedding := jobMode || a.models.Classifier != nil
	resumeVec, jdVec, err := a.embedPair(ctx, resume, jd, needResumeEmbedding, jobMode)
	if err != nil {
		return types.ScoreBundle{}, err
	}

	if clf := a.models.Classifier; clf != nil {
		features := classifier.Hybrid(resumeVec, a.models.TFIDF.Dense(resumeNorm))
		label, confidence, err := clf.Predict(features)
		if err != nil {
			return types.ScoreBundle{}, err
		}
		bundle.PredictedCategory = label
		bundle.ModelConfidence = confidence
	}

	if !jobMode {
		a.logger.Debug("Resume analyzed without job description",
			"skills", len(bundle.ResumeSkills),
			"experience_years", bundle.ExperienceYears)
		return bundle, nil
	}

	jdSkills := a.matcher.Extract(jd)
	match := skills.Match(bundle.ResumeSkills, jdSkills)

	semantic, err := similarity.CosineDense(resumeVec, jdVec)
	if err != nil {
		return types.ScoreBundle{}, err
	}
	lexical := similarity.Lexical(a.models.TFIDF, resumeNorm, textnorm.Normalize(jd))
	expScore := scoring.ScoreExperience(bundle.ExperienceYears, jd)
	eduScore := scoring.ScoreEducation(bundle.EducationLevel, jd)

	bundle.JobMatch = &types.JobMatch{
		FinalScore:        scoring.FinalATSScore(match.Percent/100, semantic, lexical, expScore, eduScore),
		SkillMatchPercent: match.Percent,
		SemanticSim:       semantic,
		LexicalSim:        lexical,
		ExpScore:          expScore,
		EduScore:          eduScore,
		JDSkills:          jdSkills,
		MissingSkills:     match.Missing,
	}

	a.logger.Debug("Resume analyzed against job description",
		"final_score", bundle.FinalScore,
		"skill_match_percent", match.Percent,
		"missing_skills", len(match.Missing))
	return bundle, nil
}

// embedPair fetches the requested embeddings concurrently
func (a *Analyzer) embedPair(ctx context.Context, resume, jd string, wantResume, wantJD bool) ([]float64, []float64, error) {
	var resumeVec, jdVec []float64
	g, gctx := errgroup.WithContext(ctx)
	if wantResume {
		g.Go(func() error {
			var err error
			resumeVec, err = a.embed(gctx, resume)
			return err
		})
	}
	if wantJD {
		g.Go(func() error {
			var err error
			jdVec, err = a.embed(gctx, jd)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return resumeVec, jdVec, nil
}

func (a *Analyzer) embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.embedTimeout)
	defer cancel()

	vec, err := a.models.Embedder.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return nil, err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return nil, errors.NewModelError(errors.ErrCodeEmbeddingTimeout, "embedding timed out", err).
			WithContext("timeout", a.embedTimeout.String())
	}
	return nil, errors.NewModelError(errors.ErrCodeEmbeddingFailed, "embedding failed", err)
}
