// Package events publishes UI-facing events to the realtime fan-out
// transport. The transport itself is an external collaborator; this package
// only hands envelopes to a RabbitMQ topic exchange (or drops them when no
// broker is configured).
package events

import (
	"context"
	"time"
)

// Event type keys carried in the envelope meta.
const (
	TypeMessageReceived = "mensajes.received"
	TypeMessageSent     = "mensajes.sent"
	TypeSessionStatus   = "sesiones.status"
	TypeSessionQR       = "sesiones.qr"
	TypeSessionDeleted  = "sesiones.deleted"
	TypeContactDeleted  = "contactos.deleted"
)

// Meta identifies an event instance.
type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Envelope is the wire shape every published event uses.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Publisher hands events to the fan-out transport. Publishing is
// best-effort from the pipelines' perspective: failures are logged by the
// implementation and never abort the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, eventType, correlationID string, data any)
	Close() error
}
