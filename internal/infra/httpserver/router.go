package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appanalyses "github.com/bryanwahyu/vc-analyst/internal/application/analyses"
	domai "github.com/bryanwahyu/vc-analyst/internal/domain/ai"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
	"github.com/bryanwahyu/vc-analyst/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Analyses is the use-case surface the router needs.
type Analyses interface {
	Analyze(ctx context.Context, summary string) (report.Payload, error)
	Save(ctx context.Context, cmd appanalyses.SaveCommand) (appanalyses.Result, error)
	GenerateAndSave(ctx context.Context, cmd appanalyses.GenerateCommand) (appanalyses.Result, error)
	List(ctx context.Context, ownerID string, limit int) ([]*report.Report, error)
	Get(ctx context.Context, ownerID string, id report.ID) (*report.Report, error)
	Rename(ctx context.Context, ownerID string, id report.ID, title string) error
	Delete(ctx context.Context, ownerID string, id report.ID) error
}

type MarketIntel interface {
	Generate(ctx context.Context) (report.Payload, error)
}

// Deps wires the router. Health checkers are optional.
type Deps struct {
	Analyses    Analyses
	Market      MarketIntel
	Owners      map[string]report.Owner
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	Required    map[string]middleware.HealthChecker
	Optional    map[string]middleware.HealthChecker
	Log         *zap.Logger
}

type Router struct {
	analyses Analyses
	market   MarketIntel
	log      *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{analyses: d.Analyses, market: d.Market, log: log.Named("http")}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestLogger(r.log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Required, d.Optional))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(d.Owners))
		if d.Limiter != nil {
			rt.Use(middleware.RateLimitMiddleware(d.Limiter))
		}

		rt.Get("/me", r.wrap(r.handleMe))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/market-intel", r.wrap(r.handleMarketIntel))

		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Post("/analyses", r.wrap(r.handleSave))
		rt.Post("/analyses/generate", r.wrap(r.handleGenerate))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Patch("/analyses/{id}", r.wrap(r.handleRename))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDelete))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks request decoding and validation failures.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, msg := classify(err)
		fields := []zap.Field{
			zap.String("request_id", middleware.RequestIDFromContext(req.Context())),
			zap.Int("status", status),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			r.log.Error("request failed", fields...)
		} else {
			r.log.Debug("request rejected", fields...)
		}
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

// classify maps an error to a status code and a message safe for the client.
// Model output never reaches the response.
func classify(err error) (int, string) {
	var (
		bad     badRequest
		extErr  *domai.ExtractionError
		genErr  *domai.GenerationError
		persErr *report.PersistenceError
		verrs   validator.ValidationErrors
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, bad.msg
	case errors.As(err, &verrs):
		return http.StatusBadRequest, middleware.ValidationMessage(verrs)
	case errors.Is(err, report.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "ai quota exceeded"
	case errors.As(err, &extErr):
		return http.StatusBadGateway, "model returned an unreadable analysis"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "analysis generation failed"
	case errors.As(err, &persErr):
		return http.StatusInternalServerError, "could not save analysis"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest{msg: "invalid JSON body"}
	}
	return nil
}

func owner(req *http.Request) (report.Owner, error) {
	o, ok := middleware.OwnerFromContext(req.Context())
	if !ok {
		return report.Owner{}, badRequest{msg: "unauthenticated"}
	}
	return o, nil
}

func reportID(req *http.Request) (report.ID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return "", badRequest{msg: err.Error()}
	}
	return report.ID(id), nil
}

// GET /v1/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, o)
	return nil
}

// POST /v1/analyze
// Body: {"summary": "..."}. Generates only; nothing is stored.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Summary string `json:"summary" validate:"required,max=20000"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	body.Summary = middleware.SanitizeString(body.Summary)
	if err := middleware.ValidateStruct(&body); err != nil {
		return err
	}

	payload, err := r.analyses.Analyze(req.Context(), body.Summary)
	if err != nil {
		middleware.IncrementGenerationFailed()
		return err
	}
	middleware.IncrementGenerated()
	writeJSON(w, http.StatusOK, payload)
	return nil
}

// GET /v1/market-intel
func (r *Router) handleMarketIntel(w http.ResponseWriter, req *http.Request) error {
	payload, err := r.market.Generate(req.Context())
	if err != nil {
		middleware.IncrementGenerationFailed()
		return err
	}
	writeJSON(w, http.StatusOK, payload)
	return nil
}

// GET /v1/analyses?limit=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analyses.List(req.Context(), o.ID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// POST /v1/analyses
// Body: {"title": "...", "summary": "...", "result": {...}}
func (r *Router) handleSave(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	var body struct {
		Title   string         `json:"title" validate:"required,max=255"`
		Summary string         `json:"summary" validate:"required,max=20000"`
		Result  report.Payload `json:"result"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	body.Title = middleware.SanitizeString(body.Title)
	body.Summary = middleware.SanitizeString(body.Summary)
	if err := middleware.ValidateStruct(&body); err != nil {
		return err
	}

	res, err := r.analyses.Save(req.Context(), appanalyses.SaveCommand{
		Owner:   o,
		Title:   body.Title,
		Summary: body.Summary,
		Result:  body.Result,
	})
	if err != nil {
		return err
	}
	r.recordSaved(res)
	writeJSON(w, http.StatusCreated, res.Report)
	return nil
}

// POST /v1/analyses/generate
// Body: {"title": "...", "summary": "..."}. Title is optional.
func (r *Router) handleGenerate(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	var body struct {
		Title   string `json:"title" validate:"omitempty,max=255"`
		Summary string `json:"summary" validate:"required,max=20000"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	body.Title = middleware.SanitizeString(body.Title)
	body.Summary = middleware.SanitizeString(body.Summary)
	if err := middleware.ValidateStruct(&body); err != nil {
		return err
	}

	res, err := r.analyses.GenerateAndSave(req.Context(), appanalyses.GenerateCommand{Owner: o, Title: body.Title, Summary: body.Summary})
	if err != nil {
		var persErr *report.PersistenceError
		if !errors.As(err, &persErr) {
			middleware.IncrementGenerationFailed()
		}
		return err
	}
	middleware.IncrementGenerated()
	r.recordSaved(res)
	writeJSON(w, http.StatusCreated, res.Report)
	return nil
}

func (r *Router) recordSaved(res appanalyses.Result) {
	middleware.IncrementSaved()
	middleware.RecordMirror(res.Mirror.Status)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	id, err := reportID(req)
	if err != nil {
		return err
	}
	a, err := r.analyses.Get(req.Context(), o.ID, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// PATCH /v1/analyses/{id}
// Body: {"title": "..."}. Only the title is mutable.
func (r *Router) handleRename(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	id, err := reportID(req)
	if err != nil {
		return err
	}
	var body struct {
		Title string `json:"title" validate:"required,max=255"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	body.Title = middleware.SanitizeString(body.Title)
	if err := middleware.ValidateStruct(&body); err != nil {
		return err
	}

	if err := r.analyses.Rename(req.Context(), o.ID, id, body.Title); err != nil {
		return err
	}
	a, err := r.analyses.Get(req.Context(), o.ID, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	o, err := owner(req)
	if err != nil {
		return err
	}
	id, err := reportID(req)
	if err != nil {
		return err
	}
	if err := r.analyses.Delete(req.Context(), o.ID, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
