package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/geobet/config"
	"github.com/alejandrodnm/geobet/internal/adapters/feed"
	"github.com/alejandrodnm/geobet/internal/adapters/notify"
	"github.com/alejandrodnm/geobet/internal/adapters/storage"
	"github.com/alejandrodnm/geobet/internal/application/engine"
	"github.com/alejandrodnm/geobet/internal/application/evaluation"
	"github.com/alejandrodnm/geobet/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	ticksPath := flag.String("ticks", "", "JSONL file with opportunity snapshots, one tick per line")
	once := flag.Bool("once", false, "process one tick and exit")
	dryRun := flag.Bool("dry-run", false, "skip the decision journal")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full allocation table (default: compact 1-line)")
	bankroll := flag.Float64("bankroll", 0, "override the configured bankroll")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *ticksPath == "" {
		slog.Error("no tick source given, pass --ticks with a JSONL file")
		os.Exit(1)
	}

	slog.Info("geobet starting",
		"config", *configPath,
		"ticks", *ticksPath,
		"interval", cfg.TickInterval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	src, err := feed.NewReplay(*ticksPath, slog.Default())
	if err != nil {
		slog.Error("failed to open tick source", "err", err)
		os.Exit(1)
	}
	defer src.Close()

	var store *storage.SQLiteStorage
	if !*dryRun {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	estimator := evaluation.NewCorrelationEstimator()
	eng, err := engine.New(cfg, estimator, slog.Default())
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}
	if *bankroll > 0 {
		eng.SetBankroll(*bankroll)
	}

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, src, eng, store, notifier, *once); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("geobet stopped cleanly")
}

// run consume la fuente tick a tick al ritmo configurado y entrega
// cada decisión al notifier y al journal.
func run(ctx context.Context, cfg *config.Config, src ports.Feed, eng *engine.Engine, store *storage.SQLiteStorage, notifier *notify.Console, once bool) error {
	limiter := rate.NewLimiter(rate.Every(cfg.TickInterval()), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		snap, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			slog.Info("tick source exhausted")
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}

		decision, events := eng.Update(snap.Opportunities, snap.Contexts)
		slog.Debug("tick processed",
			"attractor", decision.Attractor,
			"type", decision.Type.String(),
			"allocations", len(decision.Allocations),
			"confidence", decision.Confidence,
		)

		if err := notifier.Notify(ctx, decision, events); err != nil {
			slog.Warn("notifier error", "err", err)
		}
		if store != nil {
			if err := store.SaveDecision(ctx, decision); err != nil {
				slog.Warn("journal write failed", "err", err)
			}
		}

		if once {
			return nil
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
