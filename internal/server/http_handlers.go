package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"atsfit/internal/embedding"
	"atsfit/internal/errors"
	"atsfit/internal/report"
	"atsfit/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	multipartMemory      = 8 << 20
	defaultHealthTimeout = 5 * time.Second
	reportFilename       = "ats-report.pdf"
)

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.observability.Tracer("atsfit/server").Start(r.Context(), "api.analyze")
	defer span.End()

	bundle, _, err := s.analyzeRequest(ctx, r)
	if err != nil {
		s.writeAppError(w, span, err)
		return
	}

	span.SetAttributes(attribute.Bool("job_match", bundle.HasJobMatch()))
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.observability.Tracer("atsfit/server").Start(r.Context(), "api.report")
	defer span.End()

	bundle, input, err := s.analyzeRequest(ctx, r)
	if err != nil {
		s.writeAppError(w, span, err)
		return
	}

	rep := report.Build(bundle, input.Resume, s.now())
	pdf, err := report.RenderPDF(rep)
	if err != nil {
		s.writeAppError(w, span, err)
		return
	}

	if s.services.Archive != nil {
		key, err := s.services.Archive.PutReport(ctx, pdf)
		s.observability.Metrics().RecordReportArchived(ctx, err == nil)
		if err != nil {
			// The caller still gets the report
			s.Logger.LogError(err, "Failed to archive report")
		} else {
			w.Header().Set("X-Report-Key", key)
			span.SetAttributes(attribute.String("report.key", key))
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		s.Logger.LogError(err, "Failed to write report response")
	}
}

// analyzeRequest decodes the request and runs the analyzer on it
func (s *Server) analyzeRequest(ctx context.Context, r *http.Request) (types.ScoreBundle, types.AnalyzeInput, error) {
	input, err := s.readAnalyzeInput(ctx, r)
	if err != nil {
		return types.ScoreBundle{}, input, err
	}
	if s.services.Analyzer == nil {
		return types.ScoreBundle{}, input, errors.NewModelError(errors.ErrCodeModelLoadFailed, "models are not loaded", nil)
	}

	bundle, err := s.services.Analyzer.Analyze(ctx, input.Resume, input.JobDescription)
	if err != nil {
		return types.ScoreBundle{}, input, err
	}
	return bundle, input, nil
}

// readAnalyzeInput accepts a JSON body or a multipart form whose resume and
// jobDescription fields are either uploaded documents or plain text
func (s *Server) readAnalyzeInput(ctx context.Context, r *http.Request) (types.AnalyzeInput, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return types.AnalyzeInput{}, errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			"content-type must be application/json or multipart/form-data", err)
	}

	switch mediaType {
	case "application/json":
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return types.AnalyzeInput{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON body", err)
		}
		return types.AnalyzeInput{Resume: req.Resume, JobDescription: req.JobDescription}, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return types.AnalyzeInput{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse multipart form", err)
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.Logger.Warn("Failed to remove multipart temp files", "error", err.Error())
			}
		}()

		resume, err := s.formDocument(ctx, r, "resume")
		if err != nil {
			return types.AnalyzeInput{}, err
		}
		jd, err := s.formDocument(ctx, r, "jobDescription")
		if err != nil {
			return types.AnalyzeInput{}, err
		}
		return types.AnalyzeInput{Resume: resume, JobDescription: jd}, nil

	default:
		return types.AnalyzeInput{}, errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			"content-type must be application/json or multipart/form-data", nil).
			WithContext("content_type", mediaType)
	}
}

// formDocument reads field as an uploaded file when present, otherwise as text
func (s *Server) formDocument(ctx context.Context, r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if stderrors.Is(err, http.ErrMissingFile) {
		return r.FormValue(field), nil
	}
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to read form file", err).
			WithContext("field", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read uploaded file", err).
			WithContext("field", field)
	}
	if s.services.Extractor == nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "document extraction is not configured", nil)
	}
	return s.services.Extractor.Extract(ctx, header.Filename, data)
}

// statusForError maps error codes onto HTTP status codes
func statusForError(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case stderrors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.HasCode(err, errors.ErrCodeUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.HasCode(err, errors.ErrCodeMissingInput),
		errors.HasCode(err, errors.ErrCodeInvalidRequest),
		errors.HasCode(err, errors.ErrCodeInvalidFormat):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.ErrCodeEmbeddingTimeout):
		return http.StatusGatewayTimeout
	case errors.HasCode(err, errors.ErrCodeEmbeddingFailed):
		return http.StatusBadGateway
	case errors.HasCode(err, errors.ErrCodeModelLoadFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError records err on the span and writes the mapped error response.
// Messages of unexpected errors are not exposed.
func (s *Server) writeAppError(w http.ResponseWriter, span trace.Span, err error) {
	status := statusForError(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, http.StatusText(status))

	code, message := "INTERNAL_ERROR", "internal server error"
	if appErr, ok := errors.AsAppError(err); ok {
		code, message = appErr.Code, appErr.Message
		span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
	}
	if status == http.StatusRequestEntityTooLarge {
		code, message = errors.ErrCodeInvalidRequest, fmt.Sprintf("request body too large (limit is %d bytes)", s.MaxRequestSize)
	}
	span.SetAttributes(attribute.String("error.code", code))

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "status", status)
	} else {
		s.Logger.Debug("Request rejected", "status", status, "code", code)
	}
	writeErrorResponse(w, code, message, status)
}

// healthHandler reports model, embedder, cache and certificate health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	timeout := defaultHealthTimeout
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.Timeout > 0 {
		timeout = s.AppConfig.Observability.HealthCheck.Timeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	healthy := true
	response := map[string]any{
		"status":  "healthy",
		"service": "atsfit",
		"version": s.Version,
	}

	loaded := s.services.ModelsLoaded()
	response["models"] = map[string]any{"loaded": loaded}
	healthy = healthy && loaded

	if e := s.services.Embedder; e != nil {
		embedderHealthy := embedding.Healthy(e)
		response["embedding"] = map[string]any{
			"provider":        e.Name(),
			"dimension":       e.Dimension(),
			"healthy":         embedderHealthy,
			"circuit_breaker": embedding.Stats(e),
		}
		healthy = healthy && embedderHealthy

		if pinger, ok := e.(interface{ Ping(context.Context) error }); ok {
			cache := map[string]any{"healthy": true}
			if err := pinger.Ping(ctx); err != nil {
				cache["healthy"] = false
				cache["error"] = err.Error()
				healthy = false
			}
			response["cache"] = cache
		}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if certHealthy, ok := certStatus["healthy"].(bool); ok && !certHealthy {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth classifies the time left before the earliest certificate expires
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)
	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"], certStatus["status"] = false, "expired"
	case timeToExpiry <= 24*time.Hour:
		certStatus["healthy"], certStatus["status"] = false, "critical"
	case timeToExpiry <= 7*24*time.Hour:
		certStatus["healthy"], certStatus["status"] = true, "warning"
	default:
		certStatus["healthy"], certStatus["status"] = true, "ok"
	}

	certStatus["auto_reload"] = s.CertificateManager.Status()
	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "atsfit",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    len(s.APIKeys),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if e := s.services.Embedder; e != nil {
		response["embedding"] = embedding.Stats(e)
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encoding failure cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: code, Message: message})
}
