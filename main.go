package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"go.uber.org/zap"

	"dab-tg-bot/internal/bot"
	"dab-tg-bot/internal/config"
	"dab-tg-bot/internal/dab"
	"dab-tg-bot/internal/gofile"
	"dab-tg-bot/internal/pipeline"
	"dab-tg-bot/internal/session"
)

func main() {
	// 1. Validate environment (fail fast)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Session store
	_ = os.MkdirAll(filepath.Dir(cfg.SessionDBPath), 0755)
	store, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}
	defer store.Close()

	// 3. DAB login. Bad credentials are fatal at startup, never mid-command.
	catalog := dab.NewClient(cfg.DabBaseURL, logger)
	if err := catalog.Login(ctx, cfg.DabEmail, cfg.DabPassword); err != nil {
		logger.Fatal("DAB login failed, check credentials and connectivity", zap.Error(err))
	}

	// 4. Pipeline wiring
	publisher := gofile.NewClient(cfg.UploadURL, logger)
	pipe := pipeline.New(catalog, publisher, cfg.TempDir, logger)
	handlers := bot.NewHandlers(catalog, store, pipe, logger)

	// 5. Telegram transport
	b, err := tgbot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("failed to create telegram bot", zap.Error(err))
	}
	handlers.Register(b)

	logger.Info("music bot started")
	b.Start(ctx)
	logger.Info("music bot stopped")
}
