package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/channels/telegram"
	"github.com/quantumpanel/keybot/internal/config"
	"github.com/quantumpanel/keybot/internal/export"
	"github.com/quantumpanel/keybot/internal/registry"
	"github.com/quantumpanel/keybot/internal/scheduler"
	"github.com/quantumpanel/keybot/internal/web"
)

func runBot() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Load config
	cfgPath := resolveConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		})))
	}

	if err := cfg.Validate(); err != nil {
		if _, statErr := os.Stat(cfgPath); os.IsNotExist(statErr) {
			// No config file at all → first run, redirect to the wizard.
			slog.Info("no configuration found, starting setup wizard")
			runOnboard()
			return
		}
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Core components: bus, transport, registry, broker, exporter.
	msgBus := bus.New()

	tg, err := telegram.New(cfg.Telegram, msgBus)
	if err != nil {
		slog.Error("failed to create telegram channel", "error", err)
		os.Exit(1)
	}

	reg := registry.New(cfg.Seed())
	b := broker.New(reg, tg, broker.Policy{
		SellersMayAccept:  cfg.Broker.SellersMayAccept,
		CreditForcedStops: cfg.Broker.CreditForcedStops,
	})
	exp := export.New(b.Store(), reg, "")
	tg.Attach(b, reg, exp, config.ExpandHome(cfg.Telegram.StartImage))

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := tg.Start(ctx); err != nil {
		slog.Error("failed to start telegram channel", "error", err)
		os.Exit(1)
	}

	// Inbound consumer: plain chat messages routed buyer↔seller.
	go consumeInbound(ctx, msgBus, b)

	// Stat resets on cron schedules.
	sched := scheduler.New()
	if err := sched.Add("daily-stats-reset", cfg.Schedule.DailyReset, b.Store().ResetDailyStats); err != nil {
		slog.Warn("daily reset not scheduled", "error", err)
	}
	if err := sched.Add("monthly-stats-reset", cfg.Schedule.MonthlyReset, b.Store().ResetMonthlyStats); err != nil {
		slog.Warn("monthly reset not scheduled", "error", err)
	}
	go sched.Start(ctx)

	// Config watcher: roster edits apply without a restart.
	go func() {
		err := config.Watch(ctx, cfgPath, cfg, func(next *config.Config) {
			reg.Apply(next.Seed())
			slog.Info("roster reloaded from config")
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("config watcher unavailable", "error", err)
		}
	}()

	// Keepalive HTTP server for uptime pingers.
	if cfg.Web.Enabled {
		webSrv := web.NewServer(cfg.Web, b.Store())
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				slog.Error("keepalive server error", "error", err)
			}
		}()
	}

	slog.Info("keybot started",
		"version", Version,
		"admins", len(cfg.Roster.Admins),
		"products", len(cfg.Roster.Products),
	)

	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)

	cancel()
	tg.Stop(context.Background())
	msgBus.Close()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
