// Package channel defines the closed channel-type and session-status
// enumerations shared by the store rows, the pipelines and the handlers.
package channel

// Type discriminates the messaging channel a session is bound to.
type Type string

const (
	WhatsAppQR  Type = "whatsapp_qr"
	WhatsAppAPI Type = "whatsapp_api"
	Messenger   Type = "messenger"
	Instagram   Type = "instagram"
	Telegram    Type = "telegram"
	TelegramBot Type = "telegram_bot"
	Gmail       Type = "gmail"
	Outlook     Type = "outlook"
)

// Valid reports whether t is one of the known channel types.
func (t Type) Valid() bool {
	switch t {
	case WhatsAppQR, WhatsAppAPI, Messenger, Instagram, Telegram, TelegramBot, Gmail, Outlook:
		return true
	}
	return false
}

// IsWhatsApp reports whether t is either WhatsApp variant.
func (t Type) IsWhatsApp() bool {
	return t == WhatsAppQR || t == WhatsAppAPI
}

// SessionStatus is the orchestrator-reported connection state of a
// channel session. Only the lifecycle handler mutates it.
type SessionStatus string

const (
	StatusPending      SessionStatus = "pending"
	StatusConnected    SessionStatus = "connected"
	StatusDisconnected SessionStatus = "disconnected"
	StatusExpired      SessionStatus = "expired"
)

// Valid reports whether s is one of the known session statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConnected, StatusDisconnected, StatusExpired:
		return true
	}
	return false
}
