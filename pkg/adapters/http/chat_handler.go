// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response       string    `json:"response"`
	Sources        []string  `json:"sources"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// handleChat handles POST /chat
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse chat request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	// Each exchange gets a fresh conversation id
	conversationID := uuid.NewString()
	start := time.Now()

	res, err := h.opts.Chat.Answer(r.Context(), req.Message)
	if err != nil {
		h.opts.Metrics.ObserveChat("error", time.Since(start))
		h.writeServiceError(w, "chat", err)
		return
	}
	h.opts.Metrics.ObserveChat("ok", time.Since(start))

	h.logger.Info("Chat answered",
		"conversation_id", conversationID,
		"sources", len(res.Sources))

	h.writeJSON(w, http.StatusOK, ChatResponse{
		Response:       res.Response,
		Sources:        res.Sources,
		ConversationID: conversationID,
		Timestamp:      h.now(),
	})
}
