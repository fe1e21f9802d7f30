package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/anime-bot-go/internal/bot"
	"github.com/user/anime-bot-go/internal/config"
	"github.com/user/anime-bot-go/internal/server"
	"github.com/user/anime-bot-go/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormStore, err := store.NewPostgres(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	telegramClient, err := bot.NewClient(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	log.Info().Msg("Telegram client initialized")

	intake := bot.NewIntake(gormStore)
	botHandler := bot.NewHandler(gormStore, telegramClient, intake, &cfg.Bot)
	log.Info().Msg("Bot handler initialized")

	httpServer := server.NewServer(gormStore)

	// Delivery mode: webhook when a public host is configured,
	// long polling otherwise
	var updates tgbotapi.UpdatesChannel
	if url := cfg.Server.WebhookURL(); url != "" {
		webhookHandler, webhookUpdates, err := telegramClient.RegisterWebhook(url)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to register webhook")
		}
		httpServer.Mount(cfg.Server.WebhookPath, webhookHandler)
		updates = webhookUpdates
		log.Info().Str("url", url).Msg("Webhook mode selected")
	} else {
		pollUpdates, err := telegramClient.PollUpdates()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start polling")
		}
		updates = pollUpdates
		log.Info().Msg("Long-polling mode selected")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(cfg.Server.Host, cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	go func() {
		for update := range updates {
			botHandler.HandleUpdate(ctx, update)
		}
	}()

	log.Info().Msg("Anime bot started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	telegramClient.StopReceivingUpdates()
	log.Info().Msg("Update delivery stopped")

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	if err := gormStore.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed")
	}

	cancel()

	select {
	case <-shutdownCtx.Done():
		if shutdownCtx.Err() == context.DeadlineExceeded {
			log.Warn().Msg("Shutdown timeout exceeded, forcing exit")
		}
	default:
		log.Info().Msg("Graceful shutdown completed")
	}
}
