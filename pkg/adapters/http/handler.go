// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package http exposes the chat, document and Q&A sync services over a
// JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/leseb/ragchat/pkg/core/rag"
	"github.com/leseb/ragchat/pkg/core/services"
	"github.com/leseb/ragchat/pkg/objectstore"
	"github.com/leseb/ragchat/pkg/observability/logging"
	"github.com/leseb/ragchat/pkg/observability/metrics"
)

// Chatter answers a user question.
type Chatter interface {
	Answer(ctx context.Context, query string) (*rag.Result, error)
}

// Documents manages uploaded and indexed documents.
type Documents interface {
	Upload(ctx context.Context, filename, contentType string, body []byte) (*services.UploadResult, error)
	ListFiles(ctx context.Context) ([]services.FileInfo, error)
	IndexUploaded(ctx context.Context, key, filename string) (*services.IndexResult, error)
	ListIndexed(ctx context.Context) ([]services.IndexedDocument, error)
	RemoveIndexed(ctx context.Context, source string) (int, error)
}

// QAEvents applies Q&A application events to the index.
type QAEvents interface {
	Handle(ctx context.Context, ev services.QAEvent) error
}

// Options configures a Handler. Metrics may be nil.
type Options struct {
	Chat           Chatter
	Documents      Documents
	QA             QAEvents
	Metrics        *metrics.Recorder
	Logger         *logging.Logger
	Version        string
	MaxUploadBytes int64
}

// Handler implements the HTTP adapter
type Handler struct {
	opts   Options
	logger *logging.Logger
	mux    *http.ServeMux
	now    func() time.Time
}

// New creates a new HTTP handler
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	h := &Handler{
		opts:   opts,
		logger: opts.Logger,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}

	// Register routes
	h.mux.HandleFunc("GET /{$}", h.handleRoot)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.Handle("GET /metrics", opts.Metrics.Handler())

	h.mux.HandleFunc("POST /chat", h.handleChat)

	// Documents API
	h.mux.HandleFunc("POST /documents/upload", h.handleUploadDocument)
	h.mux.HandleFunc("GET /documents", h.handleListDocuments)
	h.mux.HandleFunc("POST /documents/index", h.handleIndexDocument)
	h.mux.HandleFunc("GET /documents/indexed", h.handleListIndexed)
	h.mux.HandleFunc("DELETE /documents/indexed", h.handleRemoveIndexed)

	// Q&A sync
	h.mux.HandleFunc("POST /qa/events", h.handleQAEvent)

	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	elapsed := time.Since(start)
	h.opts.Metrics.ObserveHTTP(r.Method, route, rec.status, elapsed)
	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration_ms", elapsed.Milliseconds(),
		"remote_addr", r.RemoteAddr)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// handleRoot describes the API
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "RAG Chat API",
		"version": h.opts.Version,
		"endpoints": map[string]string{
			"chat":      "POST /chat",
			"health":    "GET /health",
			"metrics":   "GET /metrics",
			"upload":    "POST /documents/upload",
			"documents": "GET /documents",
			"index":     "POST /documents/index",
			"indexed":   "GET /documents/indexed",
			"unindex":   "DELETE /documents/indexed?source=",
			"qa_events": "POST /qa/events",
		},
	})
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

// writeServiceError maps service errors to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status, errType := http.StatusInternalServerError, "server_error"
	switch {
	case errors.Is(err, services.ErrInvalidUpload),
		errors.Is(err, services.ErrUnsupportedFileType),
		errors.Is(err, services.ErrInvalidEvent),
		errors.Is(err, services.ErrUnknownEvent),
		errors.Is(err, rag.ErrEmptyQuery):
		status, errType = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, objectstore.ErrObjectNotFound):
		status, errType = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrNotImplemented):
		status, errType = http.StatusNotImplemented, "not_implemented"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err)
	} else {
		h.logger.Warn("Request rejected", "op", op, "error", err)
	}
	h.writeError(w, status, errType, err.Error())
}
