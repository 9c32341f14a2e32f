// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"

	"github.com/leseb/ragchat/pkg/core/services"
)

// handleQAEvent handles POST /qa/events
func (h *Handler) handleQAEvent(w http.ResponseWriter, r *http.Request) {
	var ev services.QAEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	if err := h.opts.QA.Handle(r.Context(), ev); err != nil {
		h.writeServiceError(w, "qa_event", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}
