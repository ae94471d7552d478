package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appai "github.com/bryanwahyu/automaton-recon/internal/application/ai"
	appscans "github.com/bryanwahyu/automaton-recon/internal/application/scans"
	domai "github.com/bryanwahyu/automaton-recon/internal/domain/ai"
	"github.com/bryanwahyu/automaton-recon/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
	"github.com/bryanwahyu/automaton-recon/internal/middleware"
)

var (
	errAIDisabled = errors.New("ai analysis is not configured")
	errNotRunning = errors.New("scan is not running")
)

// Deps are the collaborators the router serves. Only Scans is required.
type Deps struct {
	Scans       *appscans.Service
	AI          *appai.Service
	ScanErrors  scanerrors.Repository
	Metrics     *middleware.Metrics
	Health      map[string]middleware.HealthChecker
	CORSOrigins []string
}

type Router struct {
	scansSvc   *appscans.Service
	aiSvc      *appai.Service
	scanErrors scanerrors.Repository
}

func NewRouter(d Deps) http.Handler {
	r := &Router{scansSvc: d.Scans, aiSvc: d.AI, scanErrors: d.ScanErrors}
	metrics := d.Metrics
	if metrics == nil {
		metrics = middleware.NewMetrics()
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(d.Scans.Running))
	mux.Get("/healthz", middleware.HealthHandler(d.Health))
	mux.Get("/metrics", metrics.Handler)

	mux.Route("/scan", func(rt chi.Router) {
		rt.Post("/", r.wrap(r.handleSubmit))
		rt.Get("/all", r.wrap(r.handleList))
		rt.Get("/{id}", r.wrap(r.handleGet))
		rt.Delete("/{id}", r.wrap(r.handleCancel))
		rt.Get("/{id}/errors", r.wrap(r.handleErrors))
		rt.Post("/{id}/analysis", r.wrap(r.handleAnalyze))
		rt.Get("/{id}/analysis", r.wrap(r.handleLatestAnalysis))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, middleware.ErrBadRequest), errors.Is(err, domain.ErrInvalidDomain):
			writeError(w, http.StatusBadRequest, "Invalid domain format")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Scan not found")
		case errors.Is(err, domain.ErrNotCompleted):
			writeError(w, http.StatusConflict, "Scan not completed")
		case errors.Is(err, errNotRunning):
			writeError(w, http.StatusConflict, "Scan not running")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "AI quota exceeded")
		case errors.Is(err, errAIDisabled):
			writeError(w, http.StatusServiceUnavailable, "AI analysis not configured")
		case errors.Is(err, appscans.ErrShuttingDown):
			writeError(w, http.StatusServiceUnavailable, "Service shutting down")
		default:
			logger.C(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

type submitRequest struct {
	Domain string `json:"domain" validate:"required,domain"`
}

// POST /scan
// Body: {"domain": "example.com"}
// Responds immediately with the in-progress record; the scan runs in the background.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	body, err := middleware.BindJSON[submitRequest](req, 4<<10)
	if err != nil {
		return err
	}
	scan, err := r.scansSvc.Submit(req.Context(), body.Domain)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scan)
}

// GET /scan/all
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	list, err := r.scansSvc.List(req.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Scan{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /scan/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	scan, err := r.scansSvc.Get(req.Context(), domain.ScanID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scan)
}

// DELETE /scan/{id} cancels a running scan. The record stays and ends as error.
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id := domain.ScanID(chi.URLParam(req, "id"))
	if _, err := r.scansSvc.Get(req.Context(), id); err != nil {
		return err
	}
	if !r.scansSvc.Cancel(id) {
		return errNotRunning
	}
	return writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": string(id), "status": "cancelling"})
}

// GET /scan/{id}/errors?limit=20
func (r *Router) handleErrors(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if _, err := r.scansSvc.Get(req.Context(), domain.ScanID(id)); err != nil {
		return err
	}
	list := []*scanerrors.ScanError{}
	if r.scanErrors != nil {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		if limit > 100 {
			limit = 100
		}
		found, err := r.scanErrors.ListByScan(req.Context(), id, limit)
		if err != nil {
			return err
		}
		if found != nil {
			list = found
		}
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /scan/{id}/analysis
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return errAIDisabled
	}
	a, err := r.aiSvc.AnalyzeAndStore(req.Context(), domain.ScanID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /scan/{id}/analysis
func (r *Router) handleLatestAnalysis(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return errAIDisabled
	}
	a, err := r.aiSvc.Latest(req.Context(), domain.ScanID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return nil
	}
	return writeJSON(w, http.StatusOK, a)
}
