// Package app assembles the components shared by the server, scheduler and bot
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/carelog/daycare-bot/internal/api"
	"github.com/carelog/daycare-bot/internal/config"
	"github.com/carelog/daycare-bot/internal/integration/line"
	"github.com/carelog/daycare-bot/internal/integration/openai"
	"github.com/carelog/daycare-bot/internal/integration/sheets"
	"github.com/carelog/daycare-bot/internal/integration/telegram"
	"github.com/carelog/daycare-bot/internal/report"
	"github.com/carelog/daycare-bot/internal/repository"
	"github.com/carelog/daycare-bot/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// App holds the wired components
type App struct {
	Config  *config.Config
	Repo    *repository.SQLiteRepository
	Sheets  *sheets.CachedReader // nil when no spreadsheet is configured
	Bot     *tgbotapi.BotAPI     // nil unless a Telegram token is configured
	Records *usecases.CareRecordUseCase
	Reports *usecases.ReportUseCase
}

// New opens storage and connects the configured integrations
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := repository.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	a := &App{Config: cfg, Repo: repo, Records: usecases.NewCareRecordUseCase(repo)}
	if err := a.wireReports(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wireReports(ctx context.Context) error {
	cfg := a.Config

	var source usecases.HealthDataSource
	if cfg.Sheets.SpreadsheetID != "" || cfg.Sheets.PublishedID != "" {
		reader, err := sheets.NewReaderFromConfig(ctx, cfg.Sheets)
		if err != nil {
			return fmt.Errorf("failed to initialize sheets reader: %w", err)
		}
		a.Sheets = reader
		source = sheets.NewHealthSource(reader, cfg.Sheets.EldersRange, cfg.Sheets.HealthRange)
	} else {
		log.Warn().Msg("No Google Sheet configured, elder roster and batch runs are disabled")
	}

	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		a.Bot = bot
	}

	lineClient := line.NewClient(cfg.LINE.APIBaseURL, cfg.LINE.ChannelAccessToken)
	if cfg.Server.APIToken == "" {
		log.Warn().Msg("API_TOKEN is not set, dispatcher actions accept unauthenticated requests")
	}
	if cfg.LINE.ChannelAccessToken == "" {
		log.Warn().Msg("LINE_CHANNEL_ACCESS_TOKEN is not set, LINE deliveries will be rejected")
	}

	var messenger usecases.Messenger = lineClient
	if cfg.Notify.Channel == config.ChannelTelegram {
		if a.Bot == nil {
			return errors.New("NOTIFY_CHANNEL=telegram requires TELEGRAM_BOT_TOKEN")
		}
		messenger = telegram.NewMessenger(a.Bot)
	}

	renderer := report.NewRenderer(report.ChartOptions{
		BaseURL: cfg.Chart.BaseURL,
		Width:   cfg.Chart.Width,
		Height:  cfg.Chart.Height,
	}, nil)

	a.Reports = usecases.NewReportUseCase(renderer, messenger, source, a.Repo, usecases.BatchOptions{
		AnomalyThreshold: cfg.Scheduler.AnomalyThreshold,
		WindowDays:       cfg.Scheduler.WindowDays,
		Location:         cfg.Location(),
	}).WithReplier(lineClient)

	if cfg.OpenAI.APIKey != "" {
		agent, err := openai.NewOpenAIService(cfg.OpenAI.APIKey)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenAI service: %w", err)
		}
		a.Reports.WithAgent(agent)
	}

	log.Info().
		Str("channel", cfg.Notify.Channel).
		Bool("sheets", a.Sheets != nil).
		Bool("agent", cfg.OpenAI.APIKey != "").
		Msg("Components wired")
	return nil
}

// APIDeps returns the HTTP handler dependencies
func (a *App) APIDeps() api.Deps {
	deps := api.Deps{
		Records:           a.Records,
		Reports:           a.Reports,
		Notifications:     a.Repo,
		DB:                a.Repo,
		LINEChannelSecret: a.Config.LINE.ChannelSecret,
		APIToken:          a.Config.Server.APIToken,
	}
	if a.Sheets != nil {
		deps.Sheets = a.Sheets
	}
	return deps
}

// Close releases storage
func (a *App) Close() error {
	return a.Repo.Close()
}
