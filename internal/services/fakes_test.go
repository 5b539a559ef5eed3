package services

import (
	"context"
	"encoding/json"

	"crm-channel-bridge/internal/channel"
	"crm-channel-bridge/internal/journal"
	"crm-channel-bridge/internal/orchestrator"
	"crm-channel-bridge/internal/store"
)

// fakeStore implements both the services Store and the resolver Store with
// in-memory maps plus per-method error injection through fail.
type fakeStore struct {
	sesiones map[int64]*store.Sesion
	waByKey  map[string]*store.WhatsAppSession
	waByID   map[int64]*store.WhatsAppSession

	contactosByID    map[int64]*store.Contacto
	contactosByPhone map[string]*store.Contacto
	contactosByJID   map[string]*store.Contacto

	chatsByPair     map[[2]int64]*store.Chat
	chatsBySesion   map[int64][]store.Chat
	chatsByContacto map[int64][]store.Chat

	mensajesByChat     map[int64]int
	mensajesByContacto map[int64]int
	actividades        map[int64]int
	deals              map[int64]int

	fail map[string]error

	patches          []map[string]any
	createdMensajes  []store.Mensaje
	createdContactos []store.Contacto
	createdChats     []store.Chat

	deletedSesiones   []int64
	deletedContactos  []int64
	deletedChats      []int64
	deletedWASessions []int64
	nextID            int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sesiones:           map[int64]*store.Sesion{},
		waByKey:            map[string]*store.WhatsAppSession{},
		waByID:             map[int64]*store.WhatsAppSession{},
		contactosByID:      map[int64]*store.Contacto{},
		contactosByPhone:   map[string]*store.Contacto{},
		contactosByJID:     map[string]*store.Contacto{},
		chatsByPair:        map[[2]int64]*store.Chat{},
		chatsBySesion:      map[int64][]store.Chat{},
		chatsByContacto:    map[int64][]store.Chat{},
		mensajesByChat:     map[int64]int{},
		mensajesByContacto: map[int64]int{},
		actividades:        map[int64]int{},
		deals:              map[int64]int{},
		fail:               map[string]error{},
		nextID:             1000,
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) GetSesion(_ context.Context, id int64) (*store.Sesion, error) {
	if err := f.fail["GetSesion"]; err != nil {
		return nil, err
	}
	return f.sesiones[id], nil
}

func (f *fakeStore) GetSesionByWhatsAppSession(_ context.Context, waID int64) (*store.Sesion, error) {
	if err := f.fail["GetSesionByWhatsAppSession"]; err != nil {
		return nil, err
	}
	for _, s := range f.sesiones {
		if s.WhatsAppSessionID != nil && *s.WhatsAppSessionID == waID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteSesion(_ context.Context, id int64) error {
	if err := f.fail["DeleteSesion"]; err != nil {
		return err
	}
	f.deletedSesiones = append(f.deletedSesiones, id)
	delete(f.sesiones, id)
	return nil
}

func (f *fakeStore) GetWhatsAppSessionByKey(_ context.Context, key string) (*store.WhatsAppSession, error) {
	if err := f.fail["GetWhatsAppSessionByKey"]; err != nil {
		return nil, err
	}
	return f.waByKey[key], nil
}

func (f *fakeStore) GetWhatsAppSession(_ context.Context, id int64) (*store.WhatsAppSession, error) {
	if err := f.fail["GetWhatsAppSession"]; err != nil {
		return nil, err
	}
	return f.waByID[id], nil
}

func (f *fakeStore) UpdateWhatsAppSessionByKey(_ context.Context, key string, patch map[string]any) (*store.WhatsAppSession, error) {
	if err := f.fail["UpdateWhatsAppSessionByKey"]; err != nil {
		return nil, err
	}
	f.patches = append(f.patches, patch)
	ws := f.waByKey[key]
	if ws == nil {
		return nil, nil
	}
	if status, ok := patch["status"].(channel.SessionStatus); ok {
		ws.Status = status
	}
	return ws, nil
}

func (f *fakeStore) DeleteWhatsAppSession(_ context.Context, id int64) error {
	if err := f.fail["DeleteWhatsAppSession"]; err != nil {
		return err
	}
	f.deletedWASessions = append(f.deletedWASessions, id)
	delete(f.waByID, id)
	return nil
}

func (f *fakeStore) GetContacto(_ context.Context, id int64) (*store.Contacto, error) {
	if err := f.fail["GetContacto"]; err != nil {
		return nil, err
	}
	return f.contactosByID[id], nil
}

func (f *fakeStore) GetContactoByTelefono(_ context.Context, telefono string) (*store.Contacto, error) {
	if err := f.fail["GetContactoByTelefono"]; err != nil {
		return nil, err
	}
	return f.contactosByPhone[telefono], nil
}

func (f *fakeStore) GetContactoByJID(_ context.Context, jid string) (*store.Contacto, error) {
	if err := f.fail["GetContactoByJID"]; err != nil {
		return nil, err
	}
	return f.contactosByJID[jid], nil
}

func (f *fakeStore) CreateContacto(_ context.Context, row store.Contacto) (*store.Contacto, error) {
	if err := f.fail["CreateContacto"]; err != nil {
		return nil, err
	}
	row.ID = f.id()
	f.createdContactos = append(f.createdContactos, row)
	f.contactosByID[row.ID] = &row
	if row.Telefono != "" {
		f.contactosByPhone[row.Telefono] = &row
	}
	if row.WhatsAppJID != "" {
		f.contactosByJID[row.WhatsAppJID] = &row
	}
	return &row, nil
}

func (f *fakeStore) DeleteContacto(_ context.Context, id int64) error {
	if err := f.fail["DeleteContacto"]; err != nil {
		return err
	}
	f.deletedContactos = append(f.deletedContactos, id)
	delete(f.contactosByID, id)
	return nil
}

func (f *fakeStore) GetChatBySesionContacto(_ context.Context, sesionID, contactoID int64) (*store.Chat, error) {
	if err := f.fail["GetChatBySesionContacto"]; err != nil {
		return nil, err
	}
	return f.chatsByPair[[2]int64{sesionID, contactoID}], nil
}

func (f *fakeStore) CreateChat(_ context.Context, row store.Chat) (*store.Chat, error) {
	if err := f.fail["CreateChat"]; err != nil {
		return nil, err
	}
	row.ID = f.id()
	f.createdChats = append(f.createdChats, row)
	f.chatsByPair[[2]int64{row.SesionID, row.ContactoID}] = &row
	f.chatsBySesion[row.SesionID] = append(f.chatsBySesion[row.SesionID], row)
	f.chatsByContacto[row.ContactoID] = append(f.chatsByContacto[row.ContactoID], row)
	return &row, nil
}

func (f *fakeStore) ListChatsBySesion(_ context.Context, sesionID int64) ([]store.Chat, error) {
	if err := f.fail["ListChatsBySesion"]; err != nil {
		return nil, err
	}
	return f.chatsBySesion[sesionID], nil
}

func (f *fakeStore) ListChatsByContacto(_ context.Context, contactoID int64) ([]store.Chat, error) {
	if err := f.fail["ListChatsByContacto"]; err != nil {
		return nil, err
	}
	return f.chatsByContacto[contactoID], nil
}

func (f *fakeStore) DeleteChat(_ context.Context, id int64) error {
	if err := f.fail["DeleteChat"]; err != nil {
		return err
	}
	f.deletedChats = append(f.deletedChats, id)
	return nil
}

func (f *fakeStore) DeleteChatsBySesion(_ context.Context, sesionID int64) (int, error) {
	if err := f.fail["DeleteChatsBySesion"]; err != nil {
		return 0, err
	}
	count := len(f.chatsBySesion[sesionID])
	delete(f.chatsBySesion, sesionID)
	return count, nil
}

func (f *fakeStore) CreateMensaje(_ context.Context, row store.Mensaje) (*store.Mensaje, error) {
	if err := f.fail["CreateMensaje"]; err != nil {
		return nil, err
	}
	row.ID = f.id()
	f.createdMensajes = append(f.createdMensajes, row)
	return &row, nil
}

func (f *fakeStore) DeleteMensajesByChat(_ context.Context, chatID int64) (int, error) {
	if err := f.fail["DeleteMensajesByChat"]; err != nil {
		return 0, err
	}
	count := f.mensajesByChat[chatID]
	delete(f.mensajesByChat, chatID)
	return count, nil
}

func (f *fakeStore) DeleteMensajesByContacto(_ context.Context, contactoID int64) (int, error) {
	if err := f.fail["DeleteMensajesByContacto"]; err != nil {
		return 0, err
	}
	count := f.mensajesByContacto[contactoID]
	delete(f.mensajesByContacto, contactoID)
	return count, nil
}

func (f *fakeStore) DeleteActividadesByContacto(_ context.Context, contactoID int64) (int, error) {
	if err := f.fail["DeleteActividadesByContacto"]; err != nil {
		return 0, err
	}
	return f.actividades[contactoID], nil
}

func (f *fakeStore) DeleteDealsByContacto(_ context.Context, contactoID int64) (int, error) {
	if err := f.fail["DeleteDealsByContacto"]; err != nil {
		return 0, err
	}
	return f.deals[contactoID], nil
}

type sentCall struct {
	CorrelationID string
	Number        string
	Text          string
}

type fakeOrchestrator struct {
	sendResp      *orchestrator.SendResponse
	sendErr       error
	disconnectErr error

	sent         []sentCall
	disconnected []string
}

func (f *fakeOrchestrator) SendMessage(_ context.Context, correlationID, number, text string) (*orchestrator.SendResponse, error) {
	f.sent = append(f.sent, sentCall{CorrelationID: correlationID, Number: number, Text: text})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResp != nil {
		return f.sendResp, nil
	}
	return &orchestrator.SendResponse{MessageID: "WIRE-1", Raw: json.RawMessage(`{"messageId":"WIRE-1"}`)}, nil
}

func (f *fakeOrchestrator) Disconnect(_ context.Context, correlationID string) error {
	f.disconnected = append(f.disconnected, correlationID)
	return f.disconnectErr
}

type publishedEvent struct {
	Type          string
	CorrelationID string
	Data          any
}

type fakeEvents struct {
	published []publishedEvent
}

func (f *fakeEvents) Publish(_ context.Context, eventType, correlationID string, data any) {
	f.published = append(f.published, publishedEvent{Type: eventType, CorrelationID: correlationID, Data: data})
}

type fakeJournal struct {
	entries []journal.Entry
	err     error
}

func (f *fakeJournal) Record(_ context.Context, e journal.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type passthroughArchiver struct {
	calls int
}

func (a *passthroughArchiver) ArchiveInbound(_ context.Context, _, _ string, media map[string]any) map[string]any {
	a.calls++
	return media
}
