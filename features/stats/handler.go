// Package stats exposes index and session counters over HTTP.
package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"virtualrag/internal/index"
	"virtualrag/internal/middleware"
)

type SessionCounter interface {
	Count() int
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	index    index.Index
	sessions SessionCounter
	llm      Pinger
	model    string
}

func NewHandler(idx index.Index, sessions SessionCounter, llm Pinger, model string) *Handler {
	return &Handler{index: idx, sessions: sessions, llm: llm, model: model}
}

type response struct {
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	ActiveSessions int    `json:"active_sessions"`
	LLMModel       string `json:"llm_model"`
	LLMAvailable   bool   `json:"llm_available"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.index.Stats(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "STATS_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	resp := response{
		Documents:      st.Documents,
		Chunks:         st.Chunks,
		ActiveSessions: h.sessions.Count(),
		LLMModel:       h.model,
	}
	if h.llm != nil {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.LLMAvailable = h.llm.Ping(pingCtx) == nil
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode stats response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
