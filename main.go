package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-channel-bridge/config"
	"crm-channel-bridge/internal/events"
	"crm-channel-bridge/internal/handlers"
	"crm-channel-bridge/internal/journal"
	"crm-channel-bridge/internal/media"
	"crm-channel-bridge/internal/orchestrator"
	"crm-channel-bridge/internal/resolver"
	"crm-channel-bridge/internal/services"
	"crm-channel-bridge/internal/store"
	"crm-channel-bridge/pkg/logger"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	storeClient := store.NewClient(cfg)
	orchClient := orchestrator.NewClient(cfg)

	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect event publisher")
	}
	defer publisher.Close()

	stepJournal, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.JournalPath).Msg("Could not open deletion journal")
	}
	defer stepJournal.Close()

	archiver := media.New(cfg)
	contactResolver := resolver.New(storeClient)

	inbound := services.NewInboundPipeline(storeClient, contactResolver, archiver, publisher)
	outbound := services.NewOutboundPipeline(storeClient, contactResolver, orchClient, publisher)
	lifecycle := services.NewLifecycle(storeClient, publisher, cfg.QRDebugTerminal)
	cascade := services.NewCascade(storeClient, orchClient, stepJournal, publisher)

	router := newRouter(cfg,
		handlers.NewWebhookHandler(inbound, lifecycle),
		handlers.NewMessageHandler(outbound),
		handlers.NewDeletionHandler(cascade),
		handlers.NewAdminHandler(stepJournal),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Channel bridge listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
