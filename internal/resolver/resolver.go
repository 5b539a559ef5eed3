// Package resolver implements the idempotent find-or-create logic binding
// raw channel identifiers to CRM Contact and Chat rows.
//
// Resolution is read-then-create and deliberately not atomic: two
// concurrent pipelines for the same identifier can race and create a
// duplicate. The store layer is expected to carry uniqueness constraints
// on telefono, whatsapp_jid and (sesion_id, contacto_id).
package resolver

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/store"
)

// IdentifierKind discriminates how a raw identifier addresses a contact.
type IdentifierKind string

const (
	KindPhone IdentifierKind = "phone"
	KindJID   IdentifierKind = "jid"
)

// Store is the slice of the store client the resolver needs.
type Store interface {
	GetContactoByTelefono(ctx context.Context, telefono string) (*store.Contacto, error)
	GetContactoByJID(ctx context.Context, jid string) (*store.Contacto, error)
	CreateContacto(ctx context.Context, row store.Contacto) (*store.Contacto, error)
	GetChatBySesionContacto(ctx context.Context, sesionID, contactoID int64) (*store.Chat, error)
	CreateChat(ctx context.Context, row store.Chat) (*store.Chat, error)
}

type Resolver struct {
	store Store
}

func New(s Store) *Resolver {
	return &Resolver{store: s}
}

// NormalizeDestination strips whitespace and dashes from a raw destination
// identifier and classifies it as a channel-native JID or a plain phone
// number.
func NormalizeDestination(raw string) (string, IdentifierKind) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(raw))
	if strings.Contains(cleaned, "@") {
		return cleaned, KindJID
	}
	return cleaned, KindPhone
}

// placeholderName derives a display name for a contact created from a raw
// identifier: the phone number itself, or the local part of a JID.
func placeholderName(identifier string, kind IdentifierKind) string {
	if kind == KindJID {
		if at := strings.Index(identifier, "@"); at > 0 {
			return identifier[:at]
		}
	}
	return identifier
}

// ResolveContact returns the contact matching the identifier, creating one
// owned by ownerUserID when none exists. A new contact takes displayName
// when the channel reported one, falling back to an identifier-derived
// placeholder.
func (r *Resolver) ResolveContact(ctx context.Context, identifier string, kind IdentifierKind, displayName string, ownerUserID int64) (*store.Contacto, error) {
	if identifier == "" {
		return nil, apperrors.NewValidation("identifier", "must not be empty")
	}

	var existing *store.Contacto
	var err error
	switch kind {
	case KindJID:
		existing, err = r.store.GetContactoByJID(ctx, identifier)
	default:
		existing, err = r.store.GetContactoByTelefono(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug().Int64("contactoID", existing.ID).Str("identifier", identifier).Msg("Resolved existing contact")
		return existing, nil
	}

	nombre := displayName
	if nombre == "" {
		nombre = placeholderName(identifier, kind)
	}
	row := store.Contacto{
		Nombre:    nombre,
		CreatedBy: ownerUserID,
	}
	if kind == KindJID {
		row.WhatsAppJID = identifier
	} else {
		row.Telefono = identifier
	}

	created, err := r.store.CreateContacto(ctx, row)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("contactoID", created.ID).Str("identifier", identifier).Str("kind", string(kind)).Msg("Created contact for unknown identifier")
	return created, nil
}

// ResolveChat returns the chat for (sessionID, contactID), creating one
// when none exists.
func (r *Resolver) ResolveChat(ctx context.Context, sesionID, contactoID, funnelID int64) (*store.Chat, error) {
	existing, err := r.store.GetChatBySesionContacto(ctx, sesionID, contactoID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := r.store.CreateChat(ctx, store.Chat{
		SesionID:   sesionID,
		ContactoID: contactoID,
		FunnelID:   funnelID,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("chatID", created.ID).Int64("sesionID", sesionID).Int64("contactoID", contactoID).Msg("Created chat for session/contact pair")
	return created, nil
}
