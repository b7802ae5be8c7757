package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/carelog/daycare-bot/internal/api"
	"github.com/carelog/daycare-bot/internal/app"
	"github.com/carelog/daycare-bot/internal/config"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	config.SetupLogging(cfg.Log, "daycare-bot")

	if cfg.Telegram.BotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}
	defer a.Close()

	api.NewTelegramBot(a.Bot, a.Reports).Start(ctx)
}
