package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/owslabs/whatsapp-ows-bridge/internal/bot"
	"github.com/owslabs/whatsapp-ows-bridge/internal/bridge"
	"github.com/owslabs/whatsapp-ows-bridge/internal/chat"
	"github.com/owslabs/whatsapp-ows-bridge/internal/config"
	"github.com/owslabs/whatsapp-ows-bridge/internal/handlers"
	"github.com/owslabs/whatsapp-ows-bridge/internal/journal"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
	"github.com/owslabs/whatsapp-ows-bridge/internal/ows"
	"github.com/owslabs/whatsapp-ows-bridge/internal/server"
	"github.com/owslabs/whatsapp-ows-bridge/internal/watermark"
)

// Configuration and long-lived services
var (
	cfg       *config.Config
	log       *logger.Logger
	webClient *chat.WebClient
	jrnl      *journal.Journal
	pollBot   *bot.Bot
	owsBridge *bridge.Bridge
	errChan   = make(chan error, 2)
)

func main() {
	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create a wait group for graceful shutdown
	var wg sync.WaitGroup

	// Initialize configuration and services
	if err := initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Initialization error: %v\n", err)
		os.Exit(1)
	}
	defer jrnl.Close()

	// Start the poll loop (browser login happens inside, before polling)
	startBot(ctx, &wg)

	// Start the status server
	startStatusServer(ctx, &wg)

	// Handle shutdown signals
	waitForShutdown(cancel, &wg)
}

func initialize(ctx context.Context) error {
	var err error

	// Load configuration
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting WhatsApp-OWS Bridge")

	// Open the local journal
	jrnl, err = journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	// Initialize the OWS client and verify credentials. A failed
	// verification is logged but does not abort startup; the verify
	// endpoint has historically been flaky.
	owsClient := ows.NewClient(cfg.OWS, log)
	if ok, err := owsClient.VerifyCredentials(ctx); err != nil {
		log.Error("OWS credential verification failed", err)
	} else if !ok {
		log.Warn("OWS rejected the configured credentials")
	}

	// Initialize the chat surface and the polling engine
	webClient = chat.NewWebClient(cfg.Browser, log)
	marks := watermark.NewStore(cfg.Bot.WatermarkFile)
	pollBot = bot.New(webClient, marks, cfg.Bot, log)

	// Wire the bridge as the bot's per-cycle hook
	owsBridge = bridge.New(owsClient, jrnl, log)
	pollBot.SetBeforeEach(owsBridge.BeforeEach)

	return nil
}

func startBot(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			webClient.Stop()
			log.Info("Chat surface shutdown complete")
		}()

		log.Info("Starting chat surface...")
		if err := webClient.Start(ctx); err != nil {
			errChan <- fmt.Errorf("failed to start chat surface: %w", err)
			return
		}

		pollBot.Run(ctx)
	}()
}

func startStatusServer(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting status server...")

		// Initialize HTTP handlers
		httpHandler := handlers.New(
			pollBot,
			owsBridge,
			jrnl,
			cfg.Server.WebhookSecret,
			log,
		)

		// Initialize and start HTTP server
		httpServer := server.New(cfg, httpHandler, log)
		if err := httpServer.Start(cfg); err != nil {
			errChan <- fmt.Errorf("failed to start status server: %w", err)
			return
		}

		// Keep the server running until shutdown
		<-ctx.Done()
		log.Info("Status server shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during status server shutdown", err)
		}
	}()
}

func waitForShutdown(cancel context.CancelFunc, wg *sync.WaitGroup) {
	// Wait for either service to fail or for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("Service failed", err)
	case <-sigChan:
		log.Info("Received shutdown signal")
	}

	// Cancel context to signal goroutines to shutdown
	cancel()

	// Wait for all goroutines to finish
	wg.Wait()

	log.Info("Application stopped")
}
