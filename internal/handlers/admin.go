package handlers

import (
	"context"
	"net/http"
	"strconv"

	"crm-channel-bridge/internal/journal"
)

// JournalReader reads back recorded deletion steps.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Row, error)
}

// AdminHandler exposes health and journal inspection endpoints.
type AdminHandler struct {
	journal JournalReader
}

func NewAdminHandler(j JournalReader) *AdminHandler {
	return &AdminHandler{journal: j}
}

// Health handles GET /health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JournalRecent handles GET /admin/journal?limit=N.
func (h *AdminHandler) JournalRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	rows, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, rows)
}
