// Package server exposes the suggestion engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/metrics"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SuggestionTypeKubernetesScaling is the only suggestion type routed today
const SuggestionTypeKubernetesScaling = "kubernetes_scaling"

const maxBodyBytes = 1 << 20

// Suggester is the part of the engine the router needs
type Suggester interface {
	GetSuggestion(ctx context.Context, app models.ApplicationRef, dc models.DeploymentContext) (*models.SuggestionReport, error)
	AIEnabled() bool
}

// Recorder persists finished suggestions
type Recorder interface {
	SaveSuggestion(ctx context.Context, rec *models.SuggestionRecord) error
	Ping(ctx context.Context) error
}

// Options configures a Server. Recorder may be nil.
type Options struct {
	Address        string
	RequestTimeout time.Duration
	ClusterID      string
	Recorder       Recorder
	Logger         *zap.Logger
}

// Request is the POST /suggestion body
type Request struct {
	SuggestionType    string                   `json:"suggestion_type"`
	Application       models.ApplicationRef    `json:"application"`
	DeploymentContext models.DeploymentContext `json:"deployment_context"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Server routes suggestion requests to the engine
type Server struct {
	engine     Suggester
	opts       Options
	logger     *zap.Logger
	httpServer *http.Server
}

// New creates a server around an engine
func New(engine Suggester, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{engine: engine, opts: opts, logger: opts.Logger}
	s.httpServer = &http.Server{
		Addr:              opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
	}
	return s
}

// Handler returns the routed, instrumented handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/suggestion", s.instrument("/suggestion", http.HandlerFunc(s.handleSuggestion)))
	mux.Handle("/health", s.instrument("/health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("address", s.opts.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	switch req.SuggestionType {
	case "":
		s.writeError(w, http.StatusBadRequest, "Missing required key: suggestion_type")
		return
	case SuggestionTypeKubernetesScaling:
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown suggestion_type: %s", req.SuggestionType))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	report, err := s.engine.GetSuggestion(ctx, req.Application, req.DeploymentContext)
	if err != nil {
		if apperrors.IsRouter(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("suggestion failed",
			zap.String("app", req.Application.Name),
			zap.String("namespace", req.Application.Namespace),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "An internal error occurred.")
		return
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.SaveSuggestion(ctx, storage.NewRecord(s.opts.ClusterID, report)); err != nil {
			s.logger.Warn("failed to store suggestion", zap.String("app", report.Application.Name), zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":     "ok",
		"ai_enabled": s.engine.AIEnabled(),
		"storage":    "not_configured",
	}
	if s.opts.Recorder != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Recorder.Ping(ctx); err != nil {
			resp["storage"] = "unavailable"
		} else {
			resp["storage"] = "ok"
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Status: "ERROR", Message: message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and counts it by path and status code
func (s *Server) instrument(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
