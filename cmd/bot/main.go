package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mixelka/avitorelay/internal/autoreply"
	"github.com/mixelka/avitorelay/internal/avito"
	"github.com/mixelka/avitorelay/internal/config"
	"github.com/mixelka/avitorelay/internal/database"
	"github.com/mixelka/avitorelay/internal/formatter"
	"github.com/mixelka/avitorelay/internal/llm"
	"github.com/mixelka/avitorelay/internal/poller"
	"github.com/mixelka/avitorelay/internal/scheduler"
	"github.com/mixelka/avitorelay/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting avito-to-telegram relay")

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	avitoClient := avito.NewClient(avito.Config{
		BaseURL: cfg.AvitoBaseURL,
		Timeout: cfg.HTTPTimeout,
	}, logger)
	generators := llm.NewFactory()
	tgFormatter := formatter.NewTelegramFormatter()

	// Create bot
	bot, err := telegram.NewBot(telegram.BotDeps{
		Config:     cfg,
		DB:         db,
		Avito:      avitoClient,
		Generators: generators,
		Formatter:  tgFormatter,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Delayed auto-reply pipeline
	registry := scheduler.NewRegistry(logger)
	executor := autoreply.NewExecutor(autoreply.Deps{
		DB:           db,
		Avito:        avitoClient,
		Generators:   generators,
		Notifier:     bot,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger,
	})
	engine := poller.NewEngine(poller.Deps{
		Config:    cfg,
		DB:        db,
		Avito:     avitoClient,
		Notifier:  bot,
		Scheduler: registry,
		Executor:  executor,
		Logger:    logger,
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		logger.Info("shutting down...")

		registry.CancelAll()
		cancel()
	}()

	// Start poller and bot
	go engine.Start(ctx)

	logger.Info("bot is running, press Ctrl+C to stop")
	bot.Start(ctx)

	logger.Info("bot stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
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
