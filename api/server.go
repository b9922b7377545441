// Package api provides the HTTP server for earningsai.
//
// It exposes POST /fetch-process-analyze, which runs the earnings pipeline
// for one ticker, plus health and key-status endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/seenimoa/earningsai/internal/agent"
	"github.com/seenimoa/earningsai/internal/analysis/fundamental"
	"github.com/seenimoa/earningsai/internal/config"
	"github.com/seenimoa/earningsai/internal/provider"
	"github.com/seenimoa/earningsai/pkg/utils"
)

// maxBodyBytes caps request bodies; a ticker request is a few bytes.
const maxBodyBytes = 1 << 20

// Analyzer runs the full earnings pipeline for one ticker.
type Analyzer interface {
	Run(ctx context.Context, ticker string) (*agent.Result, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	analyzer Analyzer
	logger   zerolog.Logger
	version  string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, analyzer Analyzer, logger zerolog.Logger, version string) *Server {
	s := &Server{cfg: cfg, analyzer: analyzer, logger: logger, version: version}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.API.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.API.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", httpSrv.Addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/keys", s.handleKeys)
	r.Post("/fetch-process-analyze", s.handleFetchProcessAnalyze)

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// AnalyzeRequest is the body for POST /fetch-process-analyze.
type AnalyzeRequest struct {
	Ticker string `json:"ticker"`
}

// AnalyzeResponse is the success body for POST /fetch-process-analyze.
type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleKeys reports which API keys are configured, masked.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.CheckAPIKeys(s.cfg))
}

func (s *Server) handleFetchProcessAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ticker, err := utils.ValidateTicker(req.Ticker)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.cfg.API.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.API.RequestTimeout)
		defer cancel()
	}

	res, err := s.analyzer.Run(ctx, ticker)
	if err != nil {
		status := statusFor(err)
		ev := s.logger.Warn()
		if status >= http.StatusInternalServerError {
			ev = s.logger.Error()
		}
		ev.Err(err).Str("ticker", ticker).Int("status", status).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("analysis request failed")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{Analysis: res.Analysis})
}

// statusFor maps pipeline errors to HTTP status codes. Problems with the
// request or the data it points at are 400, an expired request deadline is
// 504 and everything else is 500.
func statusFor(err error) int {
	var missing *provider.ErrMissingParam
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, utils.ErrInvalidTicker),
		errors.Is(err, fundamental.ErrStructural),
		provider.IsClientError(err),
		errors.As(err, &missing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Detail: msg})
}
