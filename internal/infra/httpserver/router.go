package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
	"github.com/bryanwahyu/whatif-lab/internal/application/analysis"
	"github.com/bryanwahyu/whatif-lab/internal/infra/ai/prompt"
	"github.com/bryanwahyu/whatif-lab/internal/middleware"
)

// maxBodyBytes caps request bodies on every JSON endpoint.
const maxBodyBytes = 1 << 20

type Router struct {
	svc     *analysis.Service
	catalog *prompt.Catalog
	logger  *zap.Logger
}

// Options carries the optional pieces of the HTTP surface.
type Options struct {
	Logger      *zap.Logger
	CORSOrigins []string
	// Limiter guards POST /api/analyze; nil disables rate limiting.
	Limiter *middleware.RateLimiter
	// Checks feed GET /readyz.
	Checks map[string]middleware.HealthChecker
}

func NewRouter(svc *analysis.Service, catalog *prompt.Catalog, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := &Router{svc: svc, catalog: catalog, logger: logger.Named("http")}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(r.logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.HealthHandler(opts.Checks))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/validate-key", r.wrap(r.handleValidateKey))
		rt.With(limit(opts.Limiter)).Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/scenarios", r.wrap(r.handleScenarios))
		rt.Post("/video-status", r.wrap(r.handleVideoStatus))
		rt.Get("/models", r.wrap(r.handleModels))
		rt.Get("/examples", r.wrap(r.handleExamples))
	})

	return mux
}

func limit(l *middleware.RateLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(l)
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps handler errors to status codes. Clients get fixed messages or the
// upstream service/status summary; model output and upstream bodies stay in the log.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var (
			ve *apperrors.ValidationError
			ue *apperrors.UpstreamError
			pe *apperrors.ParseError
			se *apperrors.PersistenceError
		)
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Error())
		case errors.As(err, &pe):
			// detail (and the raw reply) is already in the service log
			writeError(w, http.StatusInternalServerError, "invalid JSON response from model")
		case errors.As(err, &ue):
			r.logger.Warn("upstream failure", zap.Error(err),
				zap.String("request_id", middleware.GetRequestID(req.Context())))
			msg := ue.Summary()
			if errors.Is(err, apperrors.ErrQuotaExceeded) {
				msg = "ai quota exceeded"
			}
			writeError(w, http.StatusInternalServerError, msg)
		case errors.As(err, &se):
			r.logger.Error("store failure", zap.String("op", se.Op), zap.Error(se.Err),
				zap.String("request_id", middleware.GetRequestID(req.Context())))
			writeError(w, http.StatusInternalServerError, "failed to store scenario")
		default:
			r.logger.Error("unhandled error", zap.Error(err),
				zap.String("request_id", middleware.GetRequestID(req.Context())))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

// POST /api/validate-key
// Body: {"apiKey": "..."}
func (r *Router) handleValidateKey(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		APIKey string `json:"apiKey"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if body.APIKey == "" {
		return writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "API key required",
		})
	}
	return writeJSON(w, http.StatusOK, map[string]bool{
		"valid": r.svc.ValidateKey(req.Context(), body.APIKey),
	})
}

// POST /api/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var cmd analysis.AnalyzeCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	cmd.Background = middleware.SanitizeString(cmd.Background)
	for i, s := range cmd.Subjects {
		cmd.Subjects[i] = middleware.SanitizeString(s)
	}
	if cmd.Model != "" && !r.catalog.Known(cmd.Model) {
		r.logger.Warn("model not in catalog", zap.String("model", cmd.Model))
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	// analisis tetap jalan sampai selesai walau client disconnect, biar record tetap tersimpan
	ctx := context.WithoutCancel(req.Context())
	res, err := r.svc.Analyze(ctx, cmd)
	if err != nil {
		var pe *apperrors.ParseError
		if errors.As(err, &pe) {
			middleware.IncrementParseFailures()
		}
		middleware.IncrementAnalysesFailed()
		return err
	}
	if res.VideoGeneration.Failed() {
		middleware.IncrementVideoFailures()
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/scenarios?limit=10
func (r *Router) handleScenarios(w http.ResponseWriter, req *http.Request) error {
	n, err := middleware.ValidateLimit(req.URL.Query().Get("limit"))
	if err != nil {
		return apperrors.Invalid("limit", "must be an integer")
	}
	list, err := r.svc.Recent(req.Context(), n)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/video-status
// Body: {"taskId": "...", "minimaxApiKey": "..."}
func (r *Router) handleVideoStatus(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		TaskID        string `json:"taskId"`
		MinimaxAPIKey string `json:"minimaxApiKey"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if body.TaskID == "" || body.MinimaxAPIKey == "" {
		writeError(w, http.StatusBadRequest, "Task ID and API key required")
		return nil
	}
	if err := middleware.ValidateTaskID(body.TaskID); err != nil {
		return apperrors.Invalid("taskId", err.Error())
	}

	gen, err := r.svc.VideoStatus(req.Context(), body.MinimaxAPIKey, body.TaskID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, gen)
}

// GET /api/models
func (r *Router) handleModels(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, r.catalog.Models)
}

// GET /api/examples
func (r *Router) handleExamples(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, r.catalog.Examples)
}

func decode(w http.ResponseWriter, req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		return &apperrors.ValidationError{Reason: "malformed JSON body"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
