package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/channel"
	"crm-channel-bridge/internal/events"
	"crm-channel-bridge/internal/resolver"
	"crm-channel-bridge/internal/store"
)

// InboundMessage is the wire message reported by the orchestrator's
// messages/received webhook.
type InboundMessage struct {
	SessionKey   string
	SenderName   string
	SenderNumber string
	Content      string
	MessageType  string
	MediaInfo    map[string]any
	RawMessage   json.RawMessage
	ReceivedAt   time.Time
}

// InboundResult is the persisted message plus the resolved entity ids.
type InboundResult struct {
	Mensaje    *store.Mensaje `json:"mensaje"`
	ContactoID int64          `json:"contacto_id"`
	ChatID     int64          `json:"chat_id"`
}

// InboundPipeline binds a wire message to a Contact+Chat+Message triple,
// creating Contact and Chat lazily on first sight of the identifier.
type InboundPipeline struct {
	store    Store
	resolver *resolver.Resolver
	media    Archiver
	events   Events
}

func NewInboundPipeline(s Store, r *resolver.Resolver, media Archiver, ev Events) *InboundPipeline {
	return &InboundPipeline{store: s, resolver: r, media: media, events: ev}
}

// Process runs the inbound steps strictly in sequence. Lookups of the
// channel session and its owning session fail with NotFoundError; any later
// failure is surfaced as-is, with no partial-success reporting.
func (p *InboundPipeline) Process(ctx context.Context, in InboundMessage) (*InboundResult, error) {
	if in.SessionKey == "" {
		return nil, apperrors.NewValidation("session_id", "must not be empty")
	}
	if in.SenderNumber == "" {
		return nil, apperrors.NewValidation("sender_number", "must not be empty")
	}

	waSession, err := p.store.GetWhatsAppSessionByKey(ctx, in.SessionKey)
	if err != nil {
		return nil, err
	}
	if waSession == nil {
		return nil, apperrors.NewNotFound("whatsapp session", in.SessionKey)
	}

	sesion, err := p.store.GetSesionByWhatsAppSession(ctx, waSession.ID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apperrors.NewNotFound("sesion", fmt.Sprintf("whatsapp_session_id=%d", waSession.ID))
	}

	identifier, kind := resolver.NormalizeDestination(in.SenderNumber)
	contacto, err := p.resolver.ResolveContact(ctx, identifier, kind, in.SenderName, sesion.UserID)
	if err != nil {
		return nil, err
	}

	chat, err := p.resolver.ResolveChat(ctx, sesion.ID, contacto.ID, sesion.FunnelID)
	if err != nil {
		return nil, err
	}

	media := in.MediaInfo
	if p.media != nil && media != nil {
		messageRef := extractMessageID(in.RawMessage)
		if messageRef == "" {
			messageRef = fmt.Sprintf("in-%d", time.Now().UnixNano())
		}
		media = p.media.ArchiveInbound(ctx, in.SessionKey, messageRef, media)
	}

	contenido := store.MensajeContenido{
		Texto:     in.Content,
		Tipo:      in.MessageType,
		Media:     media,
		Raw:       rawOrEmpty(in.RawMessage),
		MessageID: extractMessageID(in.RawMessage),
	}
	if !in.ReceivedAt.IsZero() {
		receivedAt := in.ReceivedAt.UTC()
		contenido.ReceivedAt = &receivedAt
	}

	mensaje, err := p.store.CreateMensaje(ctx, store.Mensaje{
		ContactoID: contacto.ID,
		ChatID:     chat.ID,
		Tipo:       channel.WhatsAppAPI,
		Contenido:  contenido,
		Enviado:    false,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionKey", in.SessionKey).
		Int64("contactoID", contacto.ID).
		Int64("chatID", chat.ID).
		Int64("mensajeID", mensaje.ID).
		Msg("Inbound message persisted")

	result := &InboundResult{Mensaje: mensaje, ContactoID: contacto.ID, ChatID: chat.ID}
	if p.events != nil {
		p.events.Publish(ctx, events.TypeMessageReceived, in.SessionKey, result)
	}
	return result, nil
}

// extractMessageID pulls the channel-native message id out of the raw wire
// payload when the orchestrator included one.
func extractMessageID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var probe struct {
		ID  string `json:"id"`
		Key struct {
			ID string `json:"id"`
		} `json:"key"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.ID != "" {
		return probe.ID
	}
	return probe.Key.ID
}
