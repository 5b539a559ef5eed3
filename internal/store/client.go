// Package store issues filtered reads and writes against the relational
// store's REST query interface (PostgREST conventions: `column=eq.value`
// filters, `or=(...)` disjunctions, `Prefer: return=representation` to get
// mutated rows back).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"crm-channel-bridge/config"
	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/pkg/httputil"
)

const preferRepresentation = "return=representation"

// Client talks to the store REST interface. Lookups of WhatsApp sessions by
// correlation key are cached briefly because every webhook starts with one;
// the cache is flushed on any mutation of the resource.
type Client struct {
	http         *resty.Client
	sessionCache *cache.Cache
}

// NewClient builds a store client from the immutable process configuration.
func NewClient(cfg *config.Config) *Client {
	httpClient := httputil.WithReadRetry(
		httputil.NewClient(cfg.StoreBaseURL, cfg.StoreTimeout), 2).
		SetHeader("apikey", cfg.StoreAPIKey).
		SetHeader("Authorization", "Bearer "+cfg.StoreAPIKey).
		SetHeader("Content-Type", "application/json")

	log.Info().Str("baseURL", cfg.StoreBaseURL).Msg("Store client configured")

	return &Client{
		http:         httpClient,
		sessionCache: cache.New(30*time.Second, time.Minute),
	}
}

func upstream(err error) error {
	return &apperrors.UpstreamError{System: "store", Err: err}
}

func upstreamStatus(resp *resty.Response) error {
	return &apperrors.UpstreamError{System: "store", Status: resp.StatusCode(), Body: resp.String()}
}

// selectInto runs a filtered GET against a resource and decodes the row set.
func (c *Client) selectInto(ctx context.Context, resource string, filters map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(filters).
		SetResult(out).
		Get("/" + resource)
	if err != nil {
		log.Error().Err(err).Str("resource", resource).Msg("Store read failed")
		return upstream(err)
	}
	if resp.IsError() {
		log.Error().Str("resource", resource).Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("Store read returned an error")
		return upstreamStatus(resp)
	}
	return nil
}

// insertOne POSTs a row and returns the created representation.
func insertOne[T any](ctx context.Context, c *Client, resource string, row T) (*T, error) {
	var created []T
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", preferRepresentation).
		SetBody(row).
		SetResult(&created).
		Post("/" + resource)
	if err != nil {
		log.Error().Err(err).Str("resource", resource).Msg("Store insert failed")
		return nil, upstream(err)
	}
	if resp.IsError() {
		log.Error().Str("resource", resource).Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("Store insert returned an error")
		return nil, upstreamStatus(resp)
	}
	if len(created) == 0 {
		return nil, &apperrors.UpstreamError{System: "store", Status: resp.StatusCode(), Body: "insert returned no representation"}
	}
	return &created[0], nil
}

// deleteWhere issues a filtered DELETE and returns how many rows the store
// reports as removed.
func (c *Client) deleteWhere(ctx context.Context, resource string, filters map[string]string) (int, error) {
	var deleted []json.RawMessage
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", preferRepresentation).
		SetQueryParams(filters).
		SetResult(&deleted).
		Delete("/" + resource)
	if err != nil {
		log.Error().Err(err).Str("resource", resource).Msg("Store delete failed")
		return 0, upstream(err)
	}
	if resp.IsError() {
		log.Error().Str("resource", resource).Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("Store delete returned an error")
		return 0, upstreamStatus(resp)
	}
	return len(deleted), nil
}

func eqID(id int64) map[string]string {
	return map[string]string{"id": fmt.Sprintf("eq.%d", id)}
}

// --- Sesiones ---

// GetSesion returns the session row, or nil when absent.
func (c *Client) GetSesion(ctx context.Context, id int64) (*Sesion, error) {
	var rows []Sesion
	if err := c.selectInto(ctx, "sesiones", eqID(id), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetSesionByWhatsAppSession resolves the owning session through its
// channel-session back-reference.
func (c *Client) GetSesionByWhatsAppSession(ctx context.Context, whatsappSessionID int64) (*Sesion, error) {
	var rows []Sesion
	filters := map[string]string{"whatsapp_session_id": fmt.Sprintf("eq.%d", whatsappSessionID)}
	if err := c.selectInto(ctx, "sesiones", filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) DeleteSesion(ctx context.Context, id int64) error {
	_, err := c.deleteWhere(ctx, "sesiones", eqID(id))
	return err
}

// --- WhatsApp sessions ---

// GetWhatsAppSessionByKey locates a channel session by the orchestrator's
// correlation key. Returns nil when absent.
func (c *Client) GetWhatsAppSessionByKey(ctx context.Context, key string) (*WhatsAppSession, error) {
	if cached, found := c.sessionCache.Get(key); found {
		ws := cached.(WhatsAppSession)
		return &ws, nil
	}
	var rows []WhatsAppSession
	filters := map[string]string{"session_id": "eq." + key}
	if err := c.selectInto(ctx, "whatsapp_sessions", filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	c.sessionCache.Set(key, rows[0], cache.DefaultExpiration)
	return &rows[0], nil
}

func (c *Client) GetWhatsAppSession(ctx context.Context, id int64) (*WhatsAppSession, error) {
	var rows []WhatsAppSession
	if err := c.selectInto(ctx, "whatsapp_sessions", eqID(id), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdateWhatsAppSessionByKey patches only the given columns of the channel
// session matched by correlation key and returns the updated row, or nil
// when no row matched.
func (c *Client) UpdateWhatsAppSessionByKey(ctx context.Context, key string, patch map[string]any) (*WhatsAppSession, error) {
	c.sessionCache.Delete(key)

	var updated []WhatsAppSession
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", preferRepresentation).
		SetQueryParam("session_id", "eq."+key).
		SetBody(patch).
		SetResult(&updated).
		Patch("/whatsapp_sessions")
	if err != nil {
		log.Error().Err(err).Str("sessionKey", key).Msg("Store patch failed")
		return nil, upstream(err)
	}
	if resp.IsError() {
		log.Error().Str("sessionKey", key).Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("Store patch returned an error")
		return nil, upstreamStatus(resp)
	}
	if len(updated) == 0 {
		return nil, nil
	}
	return &updated[0], nil
}

func (c *Client) DeleteWhatsAppSession(ctx context.Context, id int64) error {
	c.sessionCache.Flush()
	_, err := c.deleteWhere(ctx, "whatsapp_sessions", eqID(id))
	return err
}

// --- Contactos ---

func (c *Client) GetContacto(ctx context.Context, id int64) (*Contacto, error) {
	var rows []Contacto
	if err := c.selectInto(ctx, "contactos", eqID(id), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) GetContactoByTelefono(ctx context.Context, telefono string) (*Contacto, error) {
	var rows []Contacto
	filters := map[string]string{"telefono": "eq." + telefono}
	if err := c.selectInto(ctx, "contactos", filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) GetContactoByJID(ctx context.Context, jid string) (*Contacto, error) {
	var rows []Contacto
	filters := map[string]string{"whatsapp_jid": "eq." + jid}
	if err := c.selectInto(ctx, "contactos", filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) CreateContacto(ctx context.Context, row Contacto) (*Contacto, error) {
	created, err := insertOne(ctx, c, "contactos", row)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("contactoID", created.ID).Str("telefono", created.Telefono).Msg("Created contact")
	return created, nil
}

func (c *Client) DeleteContacto(ctx context.Context, id int64) error {
	_, err := c.deleteWhere(ctx, "contactos", eqID(id))
	return err
}

// --- Chats ---

func (c *Client) GetChatBySesionContacto(ctx context.Context, sesionID, contactoID int64) (*Chat, error) {
	var rows []Chat
	filters := map[string]string{
		"sesion_id":   fmt.Sprintf("eq.%d", sesionID),
		"contacto_id": fmt.Sprintf("eq.%d", contactoID),
	}
	if err := c.selectInto(ctx, "chats", filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) CreateChat(ctx context.Context, row Chat) (*Chat, error) {
	created, err := insertOne(ctx, c, "chats", row)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("chatID", created.ID).Int64("sesionID", created.SesionID).Int64("contactoID", created.ContactoID).Msg("Created chat")
	return created, nil
}

func (c *Client) ListChatsBySesion(ctx context.Context, sesionID int64) ([]Chat, error) {
	var rows []Chat
	filters := map[string]string{"sesion_id": fmt.Sprintf("eq.%d", sesionID)}
	if err := c.selectInto(ctx, "chats", filters, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListChatsByContacto(ctx context.Context, contactoID int64) ([]Chat, error) {
	var rows []Chat
	filters := map[string]string{"contacto_id": fmt.Sprintf("eq.%d", contactoID)}
	if err := c.selectInto(ctx, "chats", filters, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) DeleteChat(ctx context.Context, id int64) error {
	_, err := c.deleteWhere(ctx, "chats", eqID(id))
	return err
}

// DeleteChatsBySesion removes every chat of a session in one bulk call.
func (c *Client) DeleteChatsBySesion(ctx context.Context, sesionID int64) (int, error) {
	return c.deleteWhere(ctx, "chats", map[string]string{"sesion_id": fmt.Sprintf("eq.%d", sesionID)})
}

// --- Mensajes ---

func (c *Client) CreateMensaje(ctx context.Context, row Mensaje) (*Mensaje, error) {
	created, err := insertOne(ctx, c, "mensajes", row)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("mensajeID", created.ID).Int64("chatID", created.ChatID).Bool("enviado", created.Enviado).Msg("Persisted message")
	return created, nil
}

func (c *Client) DeleteMensajesByChat(ctx context.Context, chatID int64) (int, error) {
	return c.deleteWhere(ctx, "mensajes", map[string]string{"chat_id": fmt.Sprintf("eq.%d", chatID)})
}

func (c *Client) DeleteMensajesByContacto(ctx context.Context, contactoID int64) (int, error) {
	return c.deleteWhere(ctx, "mensajes", map[string]string{"contacto_id": fmt.Sprintf("eq.%d", contactoID)})
}

// --- Actividades / Deals ---

func (c *Client) DeleteActividadesByContacto(ctx context.Context, contactoID int64) (int, error) {
	return c.deleteWhere(ctx, "actividades", map[string]string{"contacto_id": fmt.Sprintf("eq.%d", contactoID)})
}

func (c *Client) DeleteDealsByContacto(ctx context.Context, contactoID int64) (int, error) {
	return c.deleteWhere(ctx, "deals", map[string]string{"contacto_id": fmt.Sprintf("eq.%d", contactoID)})
}
