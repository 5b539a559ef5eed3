// Package services contains the session lifecycle and message
// orchestration subsystem: the inbound and outbound message pipelines, the
// channel-session state machine, and the cascading deletion orchestrators.
package services

import (
	"context"
	"encoding/json"

	"crm-channel-bridge/internal/journal"
	"crm-channel-bridge/internal/orchestrator"
	"crm-channel-bridge/internal/store"
)

// Store is the slice of the store client the pipelines depend on.
// Getters return (nil, nil) when no row matches; the pipelines translate
// that into NotFoundError where the row is required.
type Store interface {
	GetSesion(ctx context.Context, id int64) (*store.Sesion, error)
	GetSesionByWhatsAppSession(ctx context.Context, whatsappSessionID int64) (*store.Sesion, error)
	DeleteSesion(ctx context.Context, id int64) error

	GetWhatsAppSessionByKey(ctx context.Context, key string) (*store.WhatsAppSession, error)
	GetWhatsAppSession(ctx context.Context, id int64) (*store.WhatsAppSession, error)
	UpdateWhatsAppSessionByKey(ctx context.Context, key string, patch map[string]any) (*store.WhatsAppSession, error)
	DeleteWhatsAppSession(ctx context.Context, id int64) error

	GetContacto(ctx context.Context, id int64) (*store.Contacto, error)
	DeleteContacto(ctx context.Context, id int64) error

	CreateMensaje(ctx context.Context, row store.Mensaje) (*store.Mensaje, error)
	DeleteMensajesByChat(ctx context.Context, chatID int64) (int, error)
	DeleteMensajesByContacto(ctx context.Context, contactoID int64) (int, error)

	ListChatsBySesion(ctx context.Context, sesionID int64) ([]store.Chat, error)
	ListChatsByContacto(ctx context.Context, contactoID int64) ([]store.Chat, error)
	DeleteChat(ctx context.Context, id int64) error
	DeleteChatsBySesion(ctx context.Context, sesionID int64) (int, error)

	DeleteActividadesByContacto(ctx context.Context, contactoID int64) (int, error)
	DeleteDealsByContacto(ctx context.Context, contactoID int64) (int, error)
}

// Orchestrator is the outbound face of the external channel controller.
type Orchestrator interface {
	SendMessage(ctx context.Context, correlationID, number, text string) (*orchestrator.SendResponse, error)
	Disconnect(ctx context.Context, correlationID string) error
}

// Events publishes UI events; implementations never fail the caller.
type Events interface {
	Publish(ctx context.Context, eventType, correlationID string, data any)
}

// StepJournal records cascade step outcomes durably. May be nil-backed by
// callers that do not need it; the services treat recording as best-effort.
type StepJournal interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Archiver offloads inline media before message persistence.
type Archiver interface {
	ArchiveInbound(ctx context.Context, sessionKey, messageID string, media map[string]any) map[string]any
}

// rawOrEmpty keeps message envelopes JSON-clean when a payload was absent.
func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
