package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phantomlink/phantom-link/internal/archive"
	"github.com/phantomlink/phantom-link/internal/auth"
	"github.com/phantomlink/phantom-link/internal/chat"
	"github.com/phantomlink/phantom-link/internal/config"
	"github.com/phantomlink/phantom-link/internal/geo"
	"github.com/phantomlink/phantom-link/internal/handler"
	"github.com/phantomlink/phantom-link/internal/mail"
	"github.com/phantomlink/phantom-link/internal/models"
	"github.com/phantomlink/phantom-link/internal/persona"
	"github.com/phantomlink/phantom-link/internal/repository"
	"github.com/phantomlink/phantom-link/internal/sentiment"
	"github.com/phantomlink/phantom-link/internal/session"
	"github.com/phantomlink/phantom-link/internal/wiki"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	completer, err := models.NewCompletion(cfg.OpenAIAPIKey, cfg.ChatModel)
	if err != nil {
		log.Fatalf("failed to create completion model: %v", err)
	}

	extractor, err := models.NewPersonExtractor(cfg.OpenAIAPIKey, cfg.ExtractModel)
	if err != nil {
		log.Fatalf("failed to create person extractor: %v", err)
	}

	scorer := sentiment.NewScorer(sentiment.NewVADERAnalyzer())
	builder := persona.NewBuilder()
	bios := wiki.NewBiographyService(cfg.WikipediaBase, extractor, logger)
	portraits := wiki.NewPortraitService(cfg.WikipediaBase, logger)
	geocoder := geo.NewGeocoder()

	var mailer auth.Mailer
	if cfg.MailEnabled() {
		smtp, err := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		if err != nil {
			log.Fatalf("failed to create SMTP mailer: %v", err)
		}
		mailer = smtp
	} else {
		logger.Warn("SMTP_HOST not set, account mail delivery disabled")
	}

	accounts := auth.NewService(store.Users, mailer, cfg.UIBaseURL, logger)
	processor := chat.NewProcessor(scorer, builder, completer, bios, store.Ghosts, logger)
	archiver := archive.NewArchiver(store, portraits, logger)

	sessions := session.NewStore()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(session.DefaultIdleTTL); removed > 0 {
					logger.Info("swept idle sessions", "removed", removed)
				}
			}
		}
	}()

	h := handler.New(sessions, processor, archiver, geocoder, accounts,
		store.Conversations, store.Ghosts, cfg.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      h.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
