package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"crm-channel-bridge/internal/channel"
	"crm-channel-bridge/internal/services"
	"crm-channel-bridge/internal/store"
)

// InboundService processes orchestrator message webhooks.
type InboundService interface {
	Process(ctx context.Context, in services.InboundMessage) (*services.InboundResult, error)
}

// LifecycleService applies orchestrator status and QR webhooks.
type LifecycleService interface {
	ApplyStatusUpdate(ctx context.Context, u services.StatusUpdate) (*store.WhatsAppSession, error)
	ApplyQrUpdate(ctx context.Context, sessionKey, qr string) (*services.QrUpdateResult, error)
}

// WebhookHandler receives the orchestrator's webhooks.
type WebhookHandler struct {
	inbound   InboundService
	lifecycle LifecycleService
}

func NewWebhookHandler(inbound InboundService, lifecycle LifecycleService) *WebhookHandler {
	return &WebhookHandler{inbound: inbound, lifecycle: lifecycle}
}

type receivedMessagePayload struct {
	SessionID      string          `json:"session_id"`
	SenderName     string          `json:"sender_name"`
	SenderNumber   string          `json:"sender_number"`
	MessageContent string          `json:"message_content"`
	MessageType    string          `json:"message_type"`
	MediaInfo      map[string]any  `json:"media_info"`
	RawMessage     json.RawMessage `json:"raw_message"`
	ReceivedAt     *time.Time      `json:"received_at"`
}

// MessageReceived handles POST /webhooks/messages/received.
func (h *WebhookHandler) MessageReceived(w http.ResponseWriter, r *http.Request) {
	var payload receivedMessagePayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, err)
		return
	}

	receivedAt := time.Now().UTC()
	if payload.ReceivedAt != nil {
		receivedAt = *payload.ReceivedAt
	}

	result, err := h.inbound.Process(r.Context(), services.InboundMessage{
		SessionKey:   payload.SessionID,
		SenderName:   payload.SenderName,
		SenderNumber: payload.SenderNumber,
		Content:      payload.MessageContent,
		MessageType:  payload.MessageType,
		MediaInfo:    payload.MediaInfo,
		RawMessage:   payload.RawMessage,
		ReceivedAt:   receivedAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, result)
}

type qrUpdatePayload struct {
	SessionID string `json:"session_id"`
	QRCode    string `json:"qr_code"`
	QRURL     string `json:"qr_url,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// QrUpdate handles POST /webhooks/sessions/qr-update.
func (h *WebhookHandler) QrUpdate(w http.ResponseWriter, r *http.Request) {
	var payload qrUpdatePayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.lifecycle.ApplyQrUpdate(r.Context(), payload.SessionID, payload.QRCode)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

type statusUpdatePayload struct {
	SessionID      string                `json:"session_id"`
	Status         channel.SessionStatus `json:"status"`
	LastSeen       *time.Time            `json:"last_seen,omitempty"`
	PhoneNumber    *string               `json:"phone_number,omitempty"`
	WhatsAppUserID *string               `json:"whatsapp_user_id,omitempty"`
	AuthFolderPath *string               `json:"auth_folder_path,omitempty"`
	ServerPort     *int                  `json:"server_port,omitempty"`
}

// StatusUpdate handles POST /webhooks/sessions/status-update. Absent
// optional fields are forwarded as nil so the lifecycle handler leaves
// them untouched.
func (h *WebhookHandler) StatusUpdate(w http.ResponseWriter, r *http.Request) {
	var payload statusUpdatePayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.lifecycle.ApplyStatusUpdate(r.Context(), services.StatusUpdate{
		SessionKey:     payload.SessionID,
		Status:         payload.Status,
		LastSeen:       payload.LastSeen,
		PhoneNumber:    payload.PhoneNumber,
		WhatsAppUserID: payload.WhatsAppUserID,
		AuthFolderPath: payload.AuthFolderPath,
		ServerPort:     payload.ServerPort,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated)
}
