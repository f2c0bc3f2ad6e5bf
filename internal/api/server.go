// Package api exposes the HTTP interface for the enrichment service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webscout/webscout/internal/enrich"
	"github.com/webscout/webscout/internal/hash/sha256"
	"github.com/webscout/webscout/internal/metrics"
	"github.com/webscout/webscout/internal/preview"
	"github.com/webscout/webscout/internal/proxy"
	"github.com/webscout/webscout/internal/scout"
)

// Config bounds request handling.
type Config struct {
	RequestTimeout time.Duration
	MaxBatchInputs int
	MaxLightInputs int
}

// Crawler is the single-seed pipeline behind /scrape-emails.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string) (scout.EnrichmentResult, error)
}

// Server wires HTTP handlers to the enrichment pipeline and stores.
type Server struct {
	router       chi.Router
	previews     preview.Store
	proxySvc     *proxy.Service
	crawler      Crawler
	orchestrator *enrich.Orchestrator
	ids          scout.IDGenerator
	clock        scout.Clock
	cfg          Config
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The batch
// streaming route sits outside the timeout group: NDJSON responses are meant
// to outlive the per-request deadline, and http.TimeoutHandler would also
// swallow the Flusher.
func NewServer(
	previews preview.Store,
	proxySvc *proxy.Service,
	crawler Crawler,
	orchestrator *enrich.Orchestrator,
	ids scout.IDGenerator,
	clock scout.Clock,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxBatchInputs <= 0 {
		cfg.MaxBatchInputs = 500
	}
	if cfg.MaxLightInputs <= 0 {
		cfg.MaxLightInputs = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		previews:     previews,
		proxySvc:     proxySvc,
		crawler:      crawler,
		orchestrator: orchestrator,
		ids:          ids,
		clock:        clock,
		cfg:          cfg,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(cfg.RequestTimeout))

		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())

		r.Post("/create-preview", s.createPreview)
		r.Get("/previews", s.listPreviews)
		r.Route("/preview/{id}", func(r chi.Router) {
			r.Get("/", s.getPreview)
			r.Delete("/", s.deletePreview)
		})

		r.Get("/proxy", s.proxyPage)
		r.Get("/scrape-emails", s.scrapeEmails)
		r.Post("/scrape-emails/batch", s.scrapeEmailsBatch)
	})

	r.Post("/scout/batch", s.scoutBatch)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.previews.List(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "preview store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createPreviewRequest struct {
	WebsiteURL    string `json:"website_url"`
	ChatbotScript string `json:"chatbot_script"`
	Category      string `json:"category"`
	Name          string `json:"name"`
	ID            string `json:"id"`
}

func (s *Server) createPreview(w http.ResponseWriter, r *http.Request) {
	var req createPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	record, err := preview.NewRecord(req.WebsiteURL, req.ChatbotScript, req.Category, req.Name, req.ID, s.ids, s.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.previews.Create(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store preview")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": record.ID})
}

func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	record, err := s.previews.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, preview.ErrNotFound) {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load preview")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) deletePreview(w http.ResponseWriter, r *http.Request) {
	err := s.previews.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, preview.ErrNotFound) {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete preview")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listPreviews(w http.ResponseWriter, r *http.Request) {
	records, err := s.previews.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list previews")
		return
	}
	if records == nil {
		records = []preview.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"previews": records})
}

func (s *Server) proxyPage(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}
	fast := r.URL.Query().Get("fast") == "1" || r.URL.Query().Get("fast") == "true"

	w.Header().Set("Cache-Control", "public, s-maxage=300, stale-while-revalidate=60")

	if match := r.Header.Get("If-None-Match"); match != "" {
		if s.proxySvc.NotModified(target, sha256.ValidatorFromETag(match)) {
			w.Header().Set("ETag", match)
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	html, validator, err := s.proxySvc.Render(r.Context(), target, fast)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", sha256.WeakETag(validator))
	if _, err := w.Write([]byte(html)); err != nil {
		s.logger.Error("proxy response write failed", zap.Error(err))
	}
}

// scrapeEmails degrades failures into a 200 with an error-status body so lead
// list tooling can keep streaming rows; the one exception is a crawl cut off
// by its budget, which maps to 429 so the caller retries the same URL.
func (s *Server) scrapeEmails(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}
	normalized, err := scout.NormalizeDomain(target)
	if err != nil {
		writeJSON(w, http.StatusOK, scout.EnrichmentResult{
			Domain:  scout.Hostname(target),
			Emails:  []string{},
			Socials: []scout.SocialLink{},
			Status:  scout.StatusError,
			Error:   err.Error(),
		})
		return
	}
	result, err := s.crawler.Crawl(r.Context(), normalized)
	if errors.Is(err, scout.ErrBudgetExceeded) {
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusTooManyRequests, "enrichment budget exceeded, retry shortly")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchURLsRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) scrapeEmailsBatch(w http.ResponseWriter, r *http.Request) {
	var req batchURLsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	if len(req.URLs) > s.cfg.MaxLightInputs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d urls per batch", s.cfg.MaxLightInputs))
		return
	}
	items := enrich.Gather(s.orchestrator.RunLight(r.Context(), req.URLs), len(req.URLs))
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

type scoutBatchRequest struct {
	Inputs []string `json:"inputs"`
	Mode   string   `json:"mode"`
}

// scoutBatch streams one NDJSON line per completed item so large batches
// surface results as they finish instead of after the slowest crawl.
func (s *Server) scoutBatch(w http.ResponseWriter, r *http.Request) {
	var req scoutBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Inputs) == 0 {
		writeError(w, http.StatusBadRequest, "inputs required")
		return
	}
	if len(req.Inputs) > s.cfg.MaxBatchInputs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d inputs per batch", s.cfg.MaxBatchInputs))
		return
	}
	mode := enrich.Mode(req.Mode)
	if mode == "" {
		mode = enrich.ModeDomains
	}
	if mode != enrich.ModeDomains && mode != enrich.ModeEmails {
		writeError(w, http.StatusBadRequest, "mode must be domains or emails")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	encoder := json.NewEncoder(w)
	for item := range s.orchestrator.Run(r.Context(), req.Inputs, mode) {
		if err := encoder.Encode(item); err != nil {
			s.logger.Warn("batch stream write failed", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
