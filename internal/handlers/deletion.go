package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/services"
)

// CascadeService runs the cascading deletions.
type CascadeService interface {
	DeleteSesion(ctx context.Context, id int64) (*services.SessionDeletionSummary, error)
	DeleteContacto(ctx context.Context, id int64) (*services.ContactDeletionSummary, error)
}

// DeletionHandler exposes the cascade entry points.
type DeletionHandler struct {
	cascade CascadeService
}

func NewDeletionHandler(cascade CascadeService) *DeletionHandler {
	return &DeletionHandler{cascade: cascade}
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidation("id", "must be a positive integer")
	}
	return id, nil
}

// DeleteSesion handles DELETE /sesiones/{id}.
func (h *DeletionHandler) DeleteSesion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	summary, err := h.cascade.DeleteSesion(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, summary)
}

// DeleteContacto handles DELETE /contactos/{id}.
func (h *DeletionHandler) DeleteContacto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	summary, err := h.cascade.DeleteContacto(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, summary)
}
