// Command dispatch runs the subscription scheduler: it ticks over the
// subscription store, builds reports for due subscriptions, and delivers
// them. Dispatch failures are absorbed per subscription; the process exits
// non-zero only on structural errors such as a broken store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"intelwatch/internal/app"
	"intelwatch/internal/config"
	"intelwatch/internal/logger"
	"intelwatch/internal/ratelimit"
	"intelwatch/internal/sched"
	"intelwatch/internal/synth"
)

func main() {
	logger.Init()

	dryRun := flag.Bool("dry-run", false, "report what would be dispatched without sending")
	timezone := flag.String("timezone", "", "only process subscriptions in this timezone (IANA name)")
	storePath := flag.String("store", "", "subscriptions file path (overrides SUBSCRIPTIONS_PATH)")
	once := flag.Bool("once", false, "run a single tick and exit")
	cronSpec := flag.String("cron", "", "tick schedule in cron syntax (overrides TICK_SPEC)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}
	if *cronSpec == "" {
		*cronSpec = cfg.TickSpec
	}

	if *timezone != "" {
		if _, err := time.LoadLocation(*timezone); err != nil {
			logger.Error("invalid timezone", "timezone", *timezone, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("opening subscription store", "error", err)
		os.Exit(1)
	}

	var agent synth.Agent
	if cfg.GeminiAPIKey != "" {
		limiter := ratelimit.New(cfg.MaxPerLensCall, cfg.MaxDailyCalls)
		gemini, err := synth.NewGeminiAgent(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
		if err != nil {
			logger.Error("connecting to gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		agent = gemini
	}

	application, err := app.New(cfg, agent)
	if err != nil {
		logger.Error("assembling pipeline", "error", err)
		os.Exit(1)
	}

	scheduler := sched.New(store, application, cfg.AlertThreshold)
	opts := sched.TickOptions{DryRun: *dryRun, Timezone: *timezone}

	if *once || *dryRun {
		result, err := scheduler.Tick(ctx, opts)
		if err != nil {
			logger.Error("tick failed", "error", err)
			os.Exit(1)
		}
		logger.Info("done",
			"dispatched", result.Dispatched,
			"failed", result.Failed,
			"would_dispatch", len(result.WouldDispatch))
		return
	}

	runner := cron.New()
	_, err = runner.AddFunc(*cronSpec, func() {
		if _, err := scheduler.Tick(ctx, opts); err != nil {
			logger.Error("tick failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid cron spec", "spec", *cronSpec, "error", err)
		os.Exit(1)
	}

	logger.Info("scheduler started", "spec", *cronSpec, "store", cfg.StorePath)
	runner.Start()

	<-ctx.Done()
	logger.Info("shutting down")
	<-runner.Stop().Done()
}

func openStore(cfg *config.Config) (sched.Store, error) {
	if cfg.PostgresURL != "" {
		return sched.NewPostgresStore(cfg.PostgresURL)
	}
	return sched.NewFileStore(cfg.StorePath)
}
