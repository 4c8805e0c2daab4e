package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bindrelay/internal/core"
)

type firingResponse struct {
	ID           string  `json:"id"`
	TaskID       string  `json:"task_id"`
	FiredAt      string  `json:"fired_at"`
	Status       string  `json:"status"`
	RelayedCount int     `json:"relayed_count"`
	Error        *string `json:"error,omitempty"`
}

func (s *Server) handleListFirings(w http.ResponseWriter, r *http.Request) {
	taskID := chiURLParam(r, "taskID")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	firings, err := s.store.ListFirings(r.Context(), taskID, limit)
	if err != nil {
		s.logger.Error("list firings", "task_id", taskID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list firings")
		return
	}

	resp := make([]firingResponse, 0, len(firings))
	for _, firing := range firings {
		resp = append(resp, firingToResponse(firing))
	}
	writeJSON(w, http.StatusOK, map[string]any{"firings": resp})
}

func firingToResponse(firing *core.Firing) firingResponse {
	return firingResponse{
		ID:           firing.ID,
		TaskID:       firing.TaskID,
		FiredAt:      firing.FiredAt.UTC().Format(time.RFC3339),
		Status:       string(firing.Status),
		RelayedCount: firing.RelayedCount,
		Error:        firing.Error,
	}
}

func chiURLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
