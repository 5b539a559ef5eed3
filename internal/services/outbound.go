package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/events"
	"crm-channel-bridge/internal/resolver"
	"crm-channel-bridge/internal/store"
)

// OutboundRequest is a CRM-side send request. Exactly one of Telefono or
// WhatsAppJID carries the destination.
type OutboundRequest struct {
	SesionID    int64
	Telefono    string
	WhatsAppJID string
	Mensaje     string
}

// OutboundResult is the persisted message, the resolved entity ids and the
// orchestrator's raw response.
type OutboundResult struct {
	Mensaje      *store.Mensaje  `json:"mensaje"`
	ContactoID   int64           `json:"contacto_id"`
	ChatID       int64           `json:"chat_id"`
	Orchestrator json.RawMessage `json:"orchestrator,omitempty"`
}

// OutboundPipeline turns a send request into an orchestrator dispatch plus
// a persisted self-sent message. Contact and Chat are resolved before the
// orchestrator is called; a failed dispatch persists nothing.
type OutboundPipeline struct {
	store    Store
	resolver *resolver.Resolver
	orch     Orchestrator
	events   Events
}

func NewOutboundPipeline(s Store, r *resolver.Resolver, o Orchestrator, ev Events) *OutboundPipeline {
	return &OutboundPipeline{store: s, resolver: r, orch: o, events: ev}
}

func (p *OutboundPipeline) Send(ctx context.Context, req OutboundRequest) (*OutboundResult, error) {
	if req.SesionID == 0 {
		return nil, apperrors.NewValidation("sesion_id", "must not be empty")
	}
	if req.Mensaje == "" {
		return nil, apperrors.NewValidation("mensaje", "must not be empty")
	}
	rawDestination := req.WhatsAppJID
	if rawDestination == "" {
		rawDestination = req.Telefono
	}
	if rawDestination == "" {
		return nil, apperrors.NewValidation("telefono", "either telefono or whatsapp_jid is required")
	}

	sesion, err := p.store.GetSesion(ctx, req.SesionID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apperrors.NewNotFound("sesion", fmt.Sprintf("%d", req.SesionID))
	}
	if sesion.WhatsAppSessionID == nil {
		return nil, apperrors.NewNotFound("whatsapp session", fmt.Sprintf("sesion %d has no bound channel session", req.SesionID))
	}
	waSession, err := p.store.GetWhatsAppSession(ctx, *sesion.WhatsAppSessionID)
	if err != nil {
		return nil, err
	}
	if waSession == nil || waSession.SessionID == "" {
		return nil, apperrors.NewNotFound("whatsapp session", fmt.Sprintf("sesion %d has no bound correlation id", req.SesionID))
	}

	destination, kind := resolver.NormalizeDestination(rawDestination)
	contacto, err := p.resolver.ResolveContact(ctx, destination, kind, "", sesion.UserID)
	if err != nil {
		return nil, err
	}
	chat, err := p.resolver.ResolveChat(ctx, sesion.ID, contacto.ID, sesion.FunnelID)
	if err != nil {
		return nil, err
	}

	sent, err := p.orch.SendMessage(ctx, waSession.SessionID, destination, req.Mensaje)
	if err != nil {
		// The message was not accepted by the channel, so nothing is
		// persisted: the CRM timeline only shows messages that went out.
		return nil, err
	}

	messageID := sent.MessageID
	if messageID == "" {
		messageID = "local-" + uuid.NewString()
	}

	// Synthesized raw-wire shape keeps outbound rows uniform with inbound
	// ones for every consumer that reads the envelope.
	syntheticRaw, _ := json.Marshal(map[string]any{
		"key": map[string]any{
			"fromMe": true,
			"id":     messageID,
		},
		"message": map[string]any{
			"conversation": req.Mensaje,
		},
		"destination": destination,
	})

	senderID := sesion.UserID
	mensaje, err := p.store.CreateMensaje(ctx, store.Mensaje{
		SenderID:   &senderID,
		ContactoID: contacto.ID,
		ChatID:     chat.ID,
		Tipo:       sesion.Tipo,
		Contenido: store.MensajeContenido{
			Texto:     req.Mensaje,
			Tipo:      "text",
			Raw:       syntheticRaw,
			MessageID: messageID,
		},
		Enviado:   true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("sesionID", sesion.ID).
		Int64("contactoID", contacto.ID).
		Int64("mensajeID", mensaje.ID).
		Str("messageID", messageID).
		Msg("Outbound message dispatched and persisted")

	result := &OutboundResult{
		Mensaje:      mensaje,
		ContactoID:   contacto.ID,
		ChatID:       chat.ID,
		Orchestrator: sent.Raw,
	}
	if p.events != nil {
		p.events.Publish(ctx, events.TypeMessageSent, waSession.SessionID, result)
	}
	return result, nil
}
