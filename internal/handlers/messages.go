package handlers

import (
	"context"
	"net/http"

	"crm-channel-bridge/internal/services"
)

// OutboundService dispatches CRM send requests.
type OutboundService interface {
	Send(ctx context.Context, req services.OutboundRequest) (*services.OutboundResult, error)
}

// MessageHandler exposes the CRM-facing send endpoint.
type MessageHandler struct {
	outbound OutboundService
}

func NewMessageHandler(outbound OutboundService) *MessageHandler {
	return &MessageHandler{outbound: outbound}
}

type sendWhatsAppPayload struct {
	Telefono    string `json:"telefono,omitempty"`
	WhatsAppJID string `json:"whatsapp_jid,omitempty"`
	Mensaje     string `json:"mensaje"`
	SesionID    int64  `json:"sesion_id"`
}

// SendWhatsApp handles POST /mensajes/enviar/whatsapp.
func (h *MessageHandler) SendWhatsApp(w http.ResponseWriter, r *http.Request) {
	var payload sendWhatsAppPayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.outbound.Send(r.Context(), services.OutboundRequest{
		SesionID:    payload.SesionID,
		Telefono:    payload.Telefono,
		WhatsAppJID: payload.WhatsAppJID,
		Mensaje:     payload.Mensaje,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, result)
}
