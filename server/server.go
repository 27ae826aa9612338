// Package server exposes the auditor over HTTP.
//
//	POST   /analyze             {url} -> report, id, base64 screenshot
//	POST   /audit               {elements, classifierResults} -> report
//	GET    /audits              recent audits
//	GET    /audits/{id}         one stored report
//	GET    /audits/{id}/screenshot
//	DELETE /audits/{id}
//	GET    /health, /metrics, /mcp (optional)
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/designaudit/auditor"
	"github.com/hazyhaar/designaudit/design"
	"github.com/hazyhaar/designaudit/store"
)

// Request body caps.
const (
	MaxAnalyzeBody = 1 << 20
	MaxAuditBody   = 16 << 20
)

// Options wires a Server. Auditor is required.
type Options struct {
	Auditor     *auditor.Auditor
	Gatherer    prometheus.Gatherer // nil: no /metrics
	RateLimiter *RateLimiter        // nil: /analyze is not limited
	MCPServer   *mcp.Server         // nil: no /mcp
	Logger      *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	auditor  *auditor.Auditor
	gatherer prometheus.Gatherer
	limiter  *RateLimiter
	mcp      *mcp.Server
	logger   *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		auditor:  opts.Auditor,
		gatherer: opts.Gatherer,
		limiter:  opts.RateLimiter,
		mcp:      opts.MCPServer,
		logger:   opts.Logger,
	}
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(securityHeaders)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Use(maxBody(MaxAnalyzeBody))
		r.Post("/analyze", s.handleAnalyze)
	})

	r.With(maxBody(MaxAuditBody)).Post("/audit", s.handleAudit)

	r.Route("/audits", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/screenshot", s.handleScreenshot)
		r.Delete("/{id}", s.handleDelete)
	})

	if s.mcp != nil {
		srv := s.mcp
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
	}
	return r
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	ID         string                                  `json:"id,omitempty"`
	URL        string                                  `json:"url"`
	Issues     map[design.Category][]design.IssueGroup `json:"issues"`
	Scorecard  design.Scorecard                        `json:"scorecard"`
	Clusters   []design.Cluster                        `json:"clusters"`
	Summary    string                                  `json:"summary"`
	Screenshot []byte                                  `json:"screenshot,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required"})
		return
	}

	res, err := s.auditor.Run(r.Context(), req.URL)
	if err != nil {
		switch kind := auditor.Kind(err); {
		case errors.Is(err, auditor.ErrInvalidURL):
			writeError(w, http.StatusBadRequest, err)
		case kind != "":
			loggerFrom(r.Context()).Warn("server: analyze failed", "kind", kind, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error":   "Failed to analyze website",
				"details": err.Error(),
				"kind":    kind,
			})
		default:
			loggerFrom(r.Context()).Error("server: analyze failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to analyze website",
				"details": err.Error(),
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		ID:         res.ID,
		URL:        res.URL,
		Issues:     res.Report.Issues,
		Scorecard:  res.Report.Scorecard,
		Clusters:   res.Report.Clusters,
		Summary:    res.Report.Summary,
		Screenshot: res.Screenshot,
	})
}

type auditRequest struct {
	Elements          []design.ElementRecord        `json:"elements"`
	ClassifierResults []design.ClassificationResult `json:"classifierResults"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	for i, c := range req.ClassifierResults {
		if c.Score < 0 || c.Score > 1 {
			writeError(w, http.StatusBadRequest,
				fmt.Errorf("classifierResults[%d]: score %v outside [0,1]", i, c.Score))
			return
		}
	}
	writeJSON(w, http.StatusOK, s.auditor.Evaluate(req.Elements, req.ClassifierResults))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.auditor.List(r.Context(), queryInt(r, "limit", store.DefaultListLimit))
	if err != nil {
		s.historyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audits": entries, "count": len(entries)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.auditor.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.historyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.auditor.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.historyError(w, r, err)
		return
	}
	if len(rec.Screenshot) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no screenshot for this audit"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Screenshot)))
	w.WriteHeader(http.StatusOK)
	w.Write(rec.Screenshot)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.auditor.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.historyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) historyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, auditor.ErrNoHistory):
		writeError(w, http.StatusNotImplemented, err)
	default:
		loggerFrom(r.Context()).Error("server: history", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// decodeBody decodes a JSON body into v, answering 400 or 413 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
