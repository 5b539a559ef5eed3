package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"

	"crm-channel-bridge/config"
	"crm-channel-bridge/internal/handlers"
)

// newRouter wires all endpoints. Webhooks are authenticated by the
// orchestrator's shared secret; CRM-facing endpoints by the API token.
func newRouter(
	cfg *config.Config,
	webhook *handlers.WebhookHandler,
	message *handlers.MessageHandler,
	deletion *handlers.DeletionHandler,
	admin *handlers.AdminHandler,
) *mux.Router {
	base := alice.New(handlers.Recoverer, handlers.RequestLogger)
	webhookChain := base.Append(handlers.RequireToken("X-Webhook-Secret", cfg.WebhookSecret))
	apiChain := base.Append(handlers.RequireToken("X-Api-Token", cfg.APIToken))

	router := mux.NewRouter()

	router.Handle("/health", base.ThenFunc(admin.Health)).Methods(http.MethodGet)

	router.Handle("/webhooks/messages/received", webhookChain.ThenFunc(webhook.MessageReceived)).Methods(http.MethodPost)
	router.Handle("/webhooks/sessions/qr-update", webhookChain.ThenFunc(webhook.QrUpdate)).Methods(http.MethodPost)
	router.Handle("/webhooks/sessions/status-update", webhookChain.ThenFunc(webhook.StatusUpdate)).Methods(http.MethodPost)

	router.Handle("/mensajes/enviar/whatsapp", apiChain.ThenFunc(message.SendWhatsApp)).Methods(http.MethodPost)
	router.Handle("/sesiones/{id}", apiChain.ThenFunc(deletion.DeleteSesion)).Methods(http.MethodDelete)
	router.Handle("/contactos/{id}", apiChain.ThenFunc(deletion.DeleteContacto)).Methods(http.MethodDelete)

	router.Handle("/admin/journal", apiChain.ThenFunc(admin.JournalRecent)).Methods(http.MethodGet)

	return router
}
