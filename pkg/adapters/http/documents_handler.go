// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// IndexRequest is the body of POST /documents/index.
type IndexRequest struct {
	S3Key    string `json:"s3_key"`
	Filename string `json:"filename,omitempty"`
}

// handleUploadDocument handles POST /documents/upload
func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartOverhead)

	// Parse multipart form
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusBadRequest, "invalid_request",
				fmt.Sprintf("File size exceeds maximum allowed size of %dMB", h.opts.MaxUploadBytes>>20))
			return
		}
		h.logger.Error("Failed to parse multipart form", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse multipart form")
		return
	}

	// Get file from form
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "File is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read file content", "error", err)
		h.writeError(w, http.StatusInternalServerError, "read_error", "Failed to read file content")
		return
	}

	res, err := h.opts.Documents.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		h.writeServiceError(w, "upload", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// handleListDocuments handles GET /documents
func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	files, err := h.opts.Documents.ListFiles(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_documents", err)
		return
	}
	h.writeJSON(w, http.StatusOK, files)
}

// handleIndexDocument handles POST /documents/index
func (h *Handler) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.S3Key == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "s3_key is required")
		return
	}

	res, err := h.opts.Documents.IndexUploaded(r.Context(), req.S3Key, req.Filename)
	if err != nil {
		h.writeServiceError(w, "index_document", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// handleListIndexed handles GET /documents/indexed
func (h *Handler) handleListIndexed(w http.ResponseWriter, r *http.Request) {
	docs, err := h.opts.Documents.ListIndexed(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_indexed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, docs)
}

// handleRemoveIndexed handles DELETE /documents/indexed?source=
func (h *Handler) handleRemoveIndexed(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "source is required")
		return
	}

	n, err := h.opts.Documents.RemoveIndexed(r.Context(), source)
	if err != nil {
		h.writeServiceError(w, "remove_indexed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":         source,
		"deleted_chunks": n,
	})
}
