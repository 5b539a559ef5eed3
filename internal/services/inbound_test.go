package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"crm-channel-bridge/internal/apperrors"
	"crm-channel-bridge/internal/events"
	"crm-channel-bridge/internal/resolver"
	"crm-channel-bridge/internal/store"
)

func seedSession(f *fakeStore, key string, sesionID, waID int64) {
	f.waByKey[key] = &store.WhatsAppSession{ID: waID, SessionID: key, Status: "connected"}
	f.waByID[waID] = f.waByKey[key]
	wa := waID
	f.sesiones[sesionID] = &store.Sesion{ID: sesionID, UserID: 9, Tipo: "whatsapp_qr", FunnelID: 3, WhatsAppSessionID: &wa}
}

func TestInboundUnknownSenderCreatesContactChatMessage(t *testing.T) {
	fs := newFakeStore()
	seedSession(fs, "S1", 1, 11)
	ev := &fakeEvents{}
	p := NewInboundPipeline(fs, resolver.New(fs), nil, ev)

	result, err := p.Process(context.Background(), InboundMessage{
		SessionKey:   "S1",
		SenderNumber: "5551234",
		Content:      "hola",
		MessageType:  "text",
		RawMessage:   json.RawMessage(`{"key":{"id":"3EB0ABC"}}`),
		ReceivedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(fs.createdContactos) != 1 {
		t.Fatalf("created contacts = %d, want 1", len(fs.createdContactos))
	}
	if !strings.Contains(fs.createdContactos[0].Nombre, "5551234") {
		t.Errorf("placeholder name %q should contain the sender number", fs.createdContactos[0].Nombre)
	}
	if len(fs.createdChats) != 1 {
		t.Fatalf("created chats = %d, want 1", len(fs.createdChats))
	}
	if fs.createdChats[0].SesionID != 1 || fs.createdChats[0].FunnelID != 3 {
		t.Errorf("chat bound wrong: %+v", fs.createdChats[0])
	}
	if len(fs.createdMensajes) != 1 {
		t.Fatalf("created messages = %d, want 1", len(fs.createdMensajes))
	}

	msg := fs.createdMensajes[0]
	if msg.Enviado {
		t.Error("inbound message must not be marked self-sent")
	}
	if msg.SenderID != nil {
		t.Error("inbound message must have no sender user")
	}
	if msg.Contenido.Texto != "hola" || msg.Contenido.MessageID != "3EB0ABC" {
		t.Errorf("content = %+v", msg.Contenido)
	}
	if result.ContactoID == 0 || result.ChatID == 0 {
		t.Errorf("result ids missing: %+v", result)
	}

	if len(ev.published) != 1 || ev.published[0].Type != events.TypeMessageReceived {
		t.Fatalf("published = %+v", ev.published)
	}
	if ev.published[0].CorrelationID != "S1" {
		t.Errorf("event correlation = %q", ev.published[0].CorrelationID)
	}
}

func TestInboundSenderNameAndReceivedAtCarried(t *testing.T) {
	fs := newFakeStore()
	seedSession(fs, "S1", 1, 11)
	p := NewInboundPipeline(fs, resolver.New(fs), nil, nil)

	receivedAt := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	_, err := p.Process(context.Background(), InboundMessage{
		SessionKey:   "S1",
		SenderName:   "Ana Torres",
		SenderNumber: "5551234",
		Content:      "hola",
		ReceivedAt:   receivedAt,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(fs.createdContactos) != 1 || fs.createdContactos[0].Nombre != "Ana Torres" {
		t.Errorf("contact = %+v, want the reported sender name", fs.createdContactos)
	}
	msg := fs.createdMensajes[0]
	if msg.Contenido.ReceivedAt == nil || !msg.Contenido.ReceivedAt.Equal(receivedAt) {
		t.Errorf("envelope received_at = %v, want %v", msg.Contenido.ReceivedAt, receivedAt)
	}
}

func TestInboundKnownSenderReusesContactAndChat(t *testing.T) {
	fs := newFakeStore()
	seedSession(fs, "S1", 1, 11)
	contacto := &store.Contacto{ID: 70, Nombre: "Ana", Telefono: "5551234"}
	fs.contactosByID[70] = contacto
	fs.contactosByPhone["5551234"] = contacto
	fs.chatsByPair[[2]int64{1, 70}] = &store.Chat{ID: 80, SesionID: 1, ContactoID: 70, FunnelID: 3}

	p := NewInboundPipeline(fs, resolver.New(fs), nil, nil)
	result, err := p.Process(context.Background(), InboundMessage{SessionKey: "S1", SenderNumber: "5551234", Content: "otra vez"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(fs.createdContactos) != 0 || len(fs.createdChats) != 0 {
		t.Fatalf("no entities should be created: contacts=%d chats=%d", len(fs.createdContactos), len(fs.createdChats))
	}
	if result.ContactoID != 70 || result.ChatID != 80 {
		t.Errorf("result = %+v, want existing contact 70 and chat 80", result)
	}
}

func TestInboundUnknownSessionKey(t *testing.T) {
	fs := newFakeStore()
	p := NewInboundPipeline(fs, resolver.New(fs), nil, nil)

	_, err := p.Process(context.Background(), InboundMessage{SessionKey: "ghost", SenderNumber: "5551234"})
	var notFound *apperrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(fs.createdContactos) != 0 || len(fs.createdMensajes) != 0 {
		t.Error("nothing should be created for an unknown session key")
	}
}

func TestInboundOrphanChannelSession(t *testing.T) {
	fs := newFakeStore()
	fs.waByKey["S1"] = &store.WhatsAppSession{ID: 11, SessionID: "S1"}
	p := NewInboundPipeline(fs, resolver.New(fs), nil, nil)

	_, err := p.Process(context.Background(), InboundMessage{SessionKey: "S1", SenderNumber: "5551234"})
	var notFound *apperrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for orphan channel session, got %v", err)
	}
}

func TestInboundValidation(t *testing.T) {
	p := NewInboundPipeline(newFakeStore(), resolver.New(newFakeStore()), nil, nil)
	cases := []InboundMessage{
		{SenderNumber: "5551234"},
		{SessionKey: "S1"},
	}
	for _, in := range cases {
		_, err := p.Process(context.Background(), in)
		var validation *apperrors.ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("Process(%+v) err = %v, want ValidationError", in, err)
		}
	}
}

func TestInboundMediaArchiverInvoked(t *testing.T) {
	fs := newFakeStore()
	seedSession(fs, "S1", 1, 11)
	arch := &passthroughArchiver{}
	p := NewInboundPipeline(fs, resolver.New(fs), arch, nil)

	_, err := p.Process(context.Background(), InboundMessage{
		SessionKey:   "S1",
		SenderNumber: "5551234",
		MessageType:  "image",
		MediaInfo:    map[string]any{"mimetype": "image/jpeg"},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if arch.calls != 1 {
		t.Errorf("archiver calls = %d, want 1", arch.calls)
	}

	// Text-only messages skip the archiver.
	if _, err := p.Process(context.Background(), InboundMessage{SessionKey: "S1", SenderNumber: "5551234", Content: "hola"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if arch.calls != 1 {
		t.Errorf("archiver calls = %d after text message, want still 1", arch.calls)
	}
}

func TestExtractMessageID(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"id":"A1"}`, "A1"},
		{`{"key":{"id":"B2"}}`, "B2"},
		{`{"id":"A1","key":{"id":"B2"}}`, "A1"},
		{`{}`, ""},
		{``, ""},
		{`not json`, ""},
	}
	for _, tc := range cases {
		if got := extractMessageID(json.RawMessage(tc.raw)); got != tc.want {
			t.Errorf("extractMessageID(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
