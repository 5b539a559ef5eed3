package services

import (
	"context"
	"os"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/channel"
	"crm-channel-bridge/internal/events"
	"crm-channel-bridge/internal/store"
)

// StatusUpdate is an orchestrator status webhook. Pointer fields are
// applied only when present in the request; unspecified fields are left
// untouched.
type StatusUpdate struct {
	SessionKey     string
	Status         channel.SessionStatus
	LastSeen       *time.Time
	PhoneNumber    *string
	WhatsAppUserID *string
	AuthFolderPath *string
	ServerPort     *int
}

// QrUpdateResult carries the refreshed session row plus the QR payload for
// downstream delivery to the UI, with a rendered PNG data URL when
// encoding succeeded.
type QrUpdateResult struct {
	Session *store.WhatsAppSession `json:"session"`
	QR      string                 `json:"qr_code"`
	QRImage string                 `json:"qr_image,omitempty"`
}

// Lifecycle applies orchestrator webhooks to the channel-session state
// machine. The orchestrator is the sole authority over status: no
// transition is rejected, and nothing on the CRM side mutates status.
type Lifecycle struct {
	store      Store
	events     Events
	qrTerminal bool
}

func NewLifecycle(s Store, ev Events, qrTerminal bool) *Lifecycle {
	return &Lifecycle{store: s, events: ev, qrTerminal: qrTerminal}
}

// ApplyStatusUpdate sets the reported status unconditionally and patches
// each optional field only if the orchestrator sent it.
func (l *Lifecycle) ApplyStatusUpdate(ctx context.Context, u StatusUpdate) (*store.WhatsAppSession, error) {
	if u.SessionKey == "" {
		return nil, apperrors.NewValidation("session_id", "must not be empty")
	}
	if u.Status == "" {
		return nil, apperrors.NewValidation("status", "must not be empty")
	}

	patch := map[string]any{
		"status":     u.Status,
		"updated_at": time.Now().UTC(),
	}
	if u.LastSeen != nil {
		patch["last_seen"] = *u.LastSeen
	}
	if u.PhoneNumber != nil {
		patch["phone_number"] = *u.PhoneNumber
	}
	if u.WhatsAppUserID != nil {
		patch["whatsapp_user_id"] = *u.WhatsAppUserID
	}
	if u.AuthFolderPath != nil {
		patch["auth_folder_path"] = *u.AuthFolderPath
	}
	if u.ServerPort != nil {
		patch["server_port"] = *u.ServerPort
	}

	updated, err := l.store.UpdateWhatsAppSessionByKey(ctx, u.SessionKey, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewNotFound("whatsapp session", u.SessionKey)
	}

	log.Info().
		Str("sessionKey", u.SessionKey).
		Str("status", string(u.Status)).
		Msg("Applied session status update")

	if l.events != nil {
		l.events.Publish(ctx, events.TypeSessionStatus, u.SessionKey, updated)
	}
	return updated, nil
}

// ApplyQrUpdate forces the session back to pending regardless of its prior
// status: a new QR always means re-authentication is in progress.
func (l *Lifecycle) ApplyQrUpdate(ctx context.Context, sessionKey, qr string) (*QrUpdateResult, error) {
	if sessionKey == "" {
		return nil, apperrors.NewValidation("session_id", "must not be empty")
	}

	updated, err := l.store.UpdateWhatsAppSessionByKey(ctx, sessionKey, map[string]any{
		"status":     channel.StatusPending,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewNotFound("whatsapp session", sessionKey)
	}

	result := &QrUpdateResult{Session: updated, QR: qr}
	if png, err := qrcode.Encode(qr, qrcode.Medium, 256); err != nil {
		log.Warn().Err(err).Str("sessionKey", sessionKey).Msg("Could not render QR image")
	} else {
		result.QRImage = dataurl.New(png, "image/png").String()
	}

	if l.qrTerminal {
		qrterminal.GenerateHalfBlock(qr, qrterminal.L, os.Stdout)
	}

	log.Info().Str("sessionKey", sessionKey).Msg("QR regenerated, session back to pending")

	if l.events != nil {
		l.events.Publish(ctx, events.TypeSessionQR, sessionKey, result)
	}
	return result, nil
}
