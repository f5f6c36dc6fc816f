package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"lexibot/internal/middleware"
)

type DocumentCounter interface {
	Count() int
}

type ChunkCounter interface {
	Count() int
}

type SessionCounter interface {
	Count() int
}

type TurnCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	documents DocumentCounter
	chunks    ChunkCounter
	sessions  SessionCounter
	turns     TurnCounter
}

func NewHandler(d DocumentCounter, c ChunkCounter, s SessionCounter, turns TurnCounter) *Handler {
	return &Handler{documents: d, chunks: c, sessions: s, turns: turns}
}

type StatsResponse struct {
	Documents   int `json:"documents"`
	Chunks      int `json:"chunks"`
	Sessions    int `json:"sessions"`
	TurnsLogged int `json:"turns_logged"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	turns, err := h.turns.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count logged turns", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count logged turns", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Documents:   h.documents.Count(),
		Chunks:      h.chunks.Count(),
		Sessions:    h.sessions.Count(),
		TurnsLogged: turns,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
