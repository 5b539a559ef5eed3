package store

import (
	"encoding/json"
	"time"

	"crm-channel-bridge/internal/channel"
)

// Sesion is a CRM conversation surface bound to one channel and one funnel.
type Sesion struct {
	ID                int64        `json:"id"`
	UserID            int64        `json:"user_id"`
	Nombre            string       `json:"nombre"`
	Tipo              channel.Type `json:"tipo"`
	FunnelID          int64        `json:"funnel_id"`
	OrganizationID    int64        `json:"organization_id"`
	WhatsAppSessionID *int64       `json:"whatsapp_session_id"`
}

// WhatsAppSession is the orchestrator-tracked login/connection state for a
// WhatsApp device pairing. SessionID is the orchestrator's correlation key;
// every webhook is matched through it.
type WhatsAppSession struct {
	ID             int64                 `json:"id"`
	SessionID      string                `json:"session_id"`
	Status         channel.SessionStatus `json:"status"`
	PhoneNumber    string                `json:"phone_number"`
	WhatsAppUserID string                `json:"whatsapp_user_id"`
	AuthFolderPath string                `json:"auth_folder_path"`
	ServerPort     *int                  `json:"server_port"`
	LastSeen       *time.Time            `json:"last_seen"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// Contacto is keyed by phone number or channel-native id (JID); never both
// are required.
type Contacto struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	Telefono    string `json:"telefono,omitempty"`
	WhatsAppJID string `json:"whatsapp_jid,omitempty"`
	CreatedBy   int64  `json:"created_by"`
}

// Chat links a session and a contact; at most one exists per pair.
type Chat struct {
	ID         int64 `json:"id"`
	SesionID   int64 `json:"sesion_id"`
	ContactoID int64 `json:"contacto_id"`
	FunnelID   int64 `json:"funnel_id"`
}

// MensajeContenido is the content envelope persisted with every message:
// the raw wire payload plus the fields extracted from it.
type MensajeContenido struct {
	Texto      string          `json:"texto"`
	Tipo       string          `json:"tipo,omitempty"`
	Media      map[string]any  `json:"media,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	MessageID  string          `json:"message_id,omitempty"`
	ReceivedAt *time.Time      `json:"received_at,omitempty"`
}

// Mensaje is write-once after creation. SenderID is the CRM user for
// outbound messages and nil for inbound ones; Enviado marks self-sent.
type Mensaje struct {
	ID         int64            `json:"id"`
	SenderID   *int64           `json:"sender_id,omitempty"`
	ContactoID int64            `json:"contacto_id"`
	ChatID     int64            `json:"chat_id"`
	Tipo       channel.Type     `json:"tipo"`
	Contenido  MensajeContenido `json:"contenido"`
	Enviado    bool             `json:"enviado"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Actividad and Deal matter here only as cascade-delete targets of Contacto.
type Actividad struct {
	ID         int64  `json:"id"`
	ContactoID int64  `json:"contacto_id"`
	Titulo     string `json:"titulo,omitempty"`
}

type Deal struct {
	ID         int64  `json:"id"`
	ContactoID int64  `json:"contacto_id"`
	Nombre     string `json:"nombre,omitempty"`
}
