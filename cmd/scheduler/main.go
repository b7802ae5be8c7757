package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/carelog/daycare-bot/internal/app"
	"github.com/carelog/daycare-bot/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

func main() {
	once := flag.Bool("once", false, "run a single batch and exit")
	force := flag.Bool("force", false, "send to every elder regardless of the calendar rules")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	config.SetupLogging(cfg.Log, "daycare-scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}
	defer a.Close()

	if *once {
		runBatch(ctx, a, *force)
		return
	}

	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := c.AddFunc(cfg.Scheduler.Spec, func() { runBatch(ctx, a, false) }); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Scheduler.Spec).Msg("Failed to set up cron job")
	}

	log.Info().
		Str("spec", cfg.Scheduler.Spec).
		Str("timezone", cfg.Scheduler.Timezone).
		Msg("Batch notification scheduled")
	c.Start()

	<-ctx.Done()
	log.Info().Msg("Stopping scheduler")
	<-c.Stop().Done()
}

// runBatch reads the roster and health rows fresh for every run
func runBatch(ctx context.Context, a *app.App, force bool) {
	if a.Sheets != nil {
		a.Sheets.Purge()
	}
	result, err := a.Reports.RunBatch(ctx, force)
	if err != nil {
		log.Error().Err(err).Msg("Batch notification failed")
		return
	}
	for _, e := range result.Errors {
		log.Warn().Str("elder", e.ElderName).Str("error", e.Error).Msg("Elder not notified")
	}
}

// cronLogger routes cron's own messages through zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
