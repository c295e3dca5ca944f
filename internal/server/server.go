// Package server exposes reqlint's lint and check operations over HTTP.
//
// The server accepts a raw requirements manifest as the request body and
// responds with the JSON report the corresponding CLI command would produce.
// It is intended for CI systems and editors that want manifest checks without
// shelling out.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reqlint/reqlint/pkg/buildinfo"
	"github.com/reqlint/reqlint/pkg/check"
	"github.com/reqlint/reqlint/pkg/lint"
	"github.com/reqlint/reqlint/pkg/requirements"
)

// maxManifestBytes bounds request bodies; requirements files are tiny and
// anything larger is abuse.
const maxManifestBytes = 1 << 20

// Server handles HTTP requests for lint and check operations.
type Server struct {
	linter  *lint.Linter
	checker *check.Checker
	logger  *charmlog.Logger
}

// New creates a Server. The checker may be nil, in which case /v1/check
// responds 503 (useful when the deployment has no registry access).
func New(linter *lint.Linter, checker *check.Checker, logger *charmlog.Logger) *Server {
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Server{linter: linter, checker: checker, logger: logger}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/lint", s.handleLint)
	r.Post("/v1/check", s.handleCheck)
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully with a short drain timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.logger.Infof("Listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	m, ok := s.readManifest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.linter.Run(m))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeError(w, http.StatusServiceUnavailable, "registry checks are disabled")
		return
	}
	m, ok := s.readManifest(w, r)
	if !ok {
		return
	}

	opts := check.Options{
		Refresh: r.URL.Query().Get("refresh") == "1",
		Logger:  func(msg string, args ...any) { s.logger.Warnf(msg, args...) },
	}
	result, err := s.checker.Check(r.Context(), m, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return // client went away
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) readManifest(w http.ResponseWriter, r *http.Request) (*requirements.Manifest, bool) {
	body := http.MaxBytesReader(w, r.Body, maxManifestBytes)
	m, err := requirements.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return m, true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
