package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/channel"
	"crm-channel-bridge/internal/events"
	"crm-channel-bridge/internal/journal"
)

// StepResult is one recorded step of a cascading deletion. Best-effort
// steps report their failure here instead of aborting the sequence.
type StepResult struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// SessionDeletionSummary reports what a session cascade removed.
type SessionDeletionSummary struct {
	SesionID               int64        `json:"sesion_id"`
	Channel                channel.Type `json:"channel"`
	DeletedChats           int          `json:"deleted_chats"`
	DeletedMensajes        int          `json:"deleted_mensajes"`
	WhatsAppSessionDeleted bool         `json:"whatsapp_session_deleted"`
	DisconnectAttempted    bool         `json:"disconnect_attempted"`
	DisconnectOK           bool         `json:"disconnect_ok"`
	Steps                  []StepResult `json:"steps"`
}

// ContactDeletionSummary reports what a contact cascade removed.
type ContactDeletionSummary struct {
	ContactoID         int64        `json:"contacto_id"`
	DeletedActividades int          `json:"deleted_actividades"`
	DeletedDeals       int          `json:"deleted_deals"`
	DeletedChats       int          `json:"deleted_chats"`
	DeletedMensajes    int          `json:"deleted_mensajes"`
	Steps              []StepResult `json:"steps"`
}

// Cascade removes a Session or Contact together with all dependent rows,
// in a fixed step order. Dependent-row steps are best-effort: a failure is
// recorded and the sequence continues. Only the explicitly hard steps
// (bulk chat delete, final root delete, dependent listing for contacts)
// abort the operation.
//
// No store-level transaction wraps the sequence; a failure mid-way leaves
// the partially-cleaned state the per-step policy implies. The dependent
// row set is also a snapshot: rows created between fetch and delete are
// missed.
type Cascade struct {
	store   Store
	orch    Orchestrator
	journal StepJournal
	events  Events
}

func NewCascade(s Store, o Orchestrator, j StepJournal, ev Events) *Cascade {
	return &Cascade{store: s, orch: o, journal: j, events: ev}
}

func (c *Cascade) record(ctx context.Context, operation string, entityID int64, step StepResult) {
	if c.journal == nil {
		return
	}
	err := c.journal.Record(ctx, journal.Entry{
		Operation: operation,
		EntityID:  entityID,
		Step:      step.Step,
		OK:        step.OK,
		Count:     step.Count,
		Error:     step.Error,
	})
	if err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("step", step.Step).Msg("Could not journal deletion step")
	}
}

func stepOK(step string, count int) StepResult {
	return StepResult{Step: step, OK: true, Count: count}
}

func stepFailed(step string, err error) StepResult {
	return StepResult{Step: step, Error: err.Error()}
}

// DeleteSesion removes a session, its chats and their messages, and the
// bound WhatsApp session when the channel is QR-paired.
func (c *Cascade) DeleteSesion(ctx context.Context, id int64) (*SessionDeletionSummary, error) {
	sesion, err := c.store.GetSesion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apperrors.NewNotFound("sesion", fmt.Sprintf("%d", id))
	}

	summary := &SessionDeletionSummary{SesionID: id, Channel: sesion.Tipo}
	op := "delete_sesion"

	chats, err := c.store.ListChatsBySesion(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, chat := range chats {
		count, err := c.store.DeleteMensajesByChat(ctx, chat.ID)
		var step StepResult
		if err != nil {
			// Best-effort: skip this chat's messages and keep going.
			log.Warn().Err(err).Int64("chatID", chat.ID).Msg("Could not delete messages of chat, continuing")
			step = stepFailed(fmt.Sprintf("delete_mensajes_chat_%d", chat.ID), err)
		} else {
			summary.DeletedMensajes += count
			step = stepOK(fmt.Sprintf("delete_mensajes_chat_%d", chat.ID), count)
		}
		summary.Steps = append(summary.Steps, step)
		c.record(ctx, op, id, step)
	}

	deletedChats, err := c.store.DeleteChatsBySesion(ctx, id)
	if err != nil {
		step := stepFailed("delete_chats", err)
		summary.Steps = append(summary.Steps, step)
		c.record(ctx, op, id, step)
		return nil, err
	}
	summary.DeletedChats = deletedChats
	step := stepOK("delete_chats", deletedChats)
	summary.Steps = append(summary.Steps, step)
	c.record(ctx, op, id, step)

	if sesion.Tipo == channel.WhatsAppQR && sesion.WhatsAppSessionID != nil {
		c.teardownWhatsAppSession(ctx, *sesion.WhatsAppSessionID, summary)
	}

	if err := c.store.DeleteSesion(ctx, id); err != nil {
		step := stepFailed("delete_sesion", err)
		summary.Steps = append(summary.Steps, step)
		c.record(ctx, op, id, step)
		return nil, err
	}
	step = stepOK("delete_sesion", 1)
	summary.Steps = append(summary.Steps, step)
	c.record(ctx, op, id, step)

	log.Info().
		Int64("sesionID", id).
		Int("deletedChats", summary.DeletedChats).
		Int("deletedMensajes", summary.DeletedMensajes).
		Bool("whatsappSessionDeleted", summary.WhatsAppSessionDeleted).
		Msg("Session cascade completed")

	if c.events != nil {
		c.events.Publish(ctx, events.TypeSessionDeleted, fmt.Sprintf("%d", id), summary)
	}
	return summary, nil
}

// teardownWhatsAppSession disconnects (when connected) and removes the
// channel session row. Every step here is best-effort: the session cascade
// never fails because the orchestrator or the channel-session row did.
func (c *Cascade) teardownWhatsAppSession(ctx context.Context, waID int64, summary *SessionDeletionSummary) {
	op := "delete_sesion"

	waSession, err := c.store.GetWhatsAppSession(ctx, waID)
	if err != nil {
		log.Warn().Err(err).Int64("whatsappSessionID", waID).Msg("Could not load whatsapp session, skipping teardown")
		step := stepFailed("load_whatsapp_session", err)
		summary.Steps = append(summary.Steps, step)
		c.record(ctx, op, summary.SesionID, step)
		return
	}
	if waSession == nil {
		return
	}

	if waSession.Status == channel.StatusConnected {
		summary.DisconnectAttempted = true
		if err := c.orch.Disconnect(ctx, waSession.SessionID); err != nil {
			log.Warn().Err(err).Str("sessionKey", waSession.SessionID).Msg("Orchestrator disconnect failed, continuing")
			step := stepFailed("disconnect", err)
			summary.Steps = append(summary.Steps, step)
			c.record(ctx, op, summary.SesionID, step)
		} else {
			summary.DisconnectOK = true
			step := stepOK("disconnect", 1)
			summary.Steps = append(summary.Steps, step)
			c.record(ctx, op, summary.SesionID, step)
		}
	}

	if err := c.store.DeleteWhatsAppSession(ctx, waSession.ID); err != nil {
		log.Warn().Err(err).Int64("whatsappSessionID", waSession.ID).Msg("Could not delete whatsapp session row, continuing")
		step := stepFailed("delete_whatsapp_session", err)
		summary.Steps = append(summary.Steps, step)
		c.record(ctx, op, summary.SesionID, step)
		return
	}
	summary.WhatsAppSessionDeleted = true
	step := stepOK("delete_whatsapp_session", 1)
	summary.Steps = append(summary.Steps, step)
	c.record(ctx, op, summary.SesionID, step)
}

// DeleteContacto removes a contact together with its activities, deals,
// chats and messages.
func (c *Cascade) DeleteContacto(ctx context.Context, id int64) (*ContactDeletionSummary, error) {
	contacto, err := c.store.GetContacto(ctx, id)
	if err != nil {
		return nil, err
	}
	if contacto == nil {
		return nil, apperrors.NewNotFound("contacto", fmt.Sprintf("%d", id))
	}

	summary := &ContactDeletionSummary{ContactoID: id}
	op := "delete_contacto"

	addStep := func(step StepResult) {
		summary.Steps = append(summary.Steps, step)
		c.record(ctx, op, id, step)
	}

	if count, err := c.store.DeleteActividadesByContacto(ctx, id); err != nil {
		log.Warn().Err(err).Int64("contactoID", id).Msg("Could not delete activities, continuing")
		addStep(stepFailed("delete_actividades", err))
	} else {
		summary.DeletedActividades = count
		addStep(stepOK("delete_actividades", count))
	}

	if count, err := c.store.DeleteDealsByContacto(ctx, id); err != nil {
		log.Warn().Err(err).Int64("contactoID", id).Msg("Could not delete deals, continuing")
		addStep(stepFailed("delete_deals", err))
	} else {
		summary.DeletedDeals = count
		addStep(stepOK("delete_deals", count))
	}

	// The chat listing is a hard stop: without it neither messages nor
	// chats can be cleaned and the contact row must stay.
	chats, err := c.store.ListChatsByContacto(ctx, id)
	if err != nil {
		addStep(stepFailed("list_chats", err))
		return nil, err
	}

	for _, chat := range chats {
		if count, err := c.store.DeleteMensajesByChat(ctx, chat.ID); err != nil {
			log.Warn().Err(err).Int64("chatID", chat.ID).Msg("Could not delete messages of chat, continuing")
			addStep(stepFailed(fmt.Sprintf("delete_mensajes_chat_%d", chat.ID), err))
		} else {
			summary.DeletedMensajes += count
			addStep(stepOK(fmt.Sprintf("delete_mensajes_chat_%d", chat.ID), count))
		}
	}

	// Messages referencing the contact directly, covering any not tied to
	// one of its chats.
	if count, err := c.store.DeleteMensajesByContacto(ctx, id); err != nil {
		log.Warn().Err(err).Int64("contactoID", id).Msg("Could not delete contact messages, continuing")
		addStep(stepFailed("delete_mensajes_contacto", err))
	} else {
		summary.DeletedMensajes += count
		addStep(stepOK("delete_mensajes_contacto", count))
	}

	for _, chat := range chats {
		if err := c.store.DeleteChat(ctx, chat.ID); err != nil {
			log.Warn().Err(err).Int64("chatID", chat.ID).Msg("Could not delete chat, continuing")
			addStep(stepFailed(fmt.Sprintf("delete_chat_%d", chat.ID), err))
		} else {
			summary.DeletedChats++
			addStep(stepOK(fmt.Sprintf("delete_chat_%d", chat.ID), 1))
		}
	}

	if err := c.store.DeleteContacto(ctx, id); err != nil {
		addStep(stepFailed("delete_contacto", err))
		return nil, err
	}
	addStep(stepOK("delete_contacto", 1))

	log.Info().
		Int64("contactoID", id).
		Int("deletedActividades", summary.DeletedActividades).
		Int("deletedDeals", summary.DeletedDeals).
		Int("deletedChats", summary.DeletedChats).
		Int("deletedMensajes", summary.DeletedMensajes).
		Msg("Contact cascade completed")

	if c.events != nil {
		c.events.Publish(ctx, events.TypeContactDeleted, fmt.Sprintf("%d", id), summary)
	}
	return summary, nil
}
