package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fleetdocs/internal/api"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/service"
	"fleetdocs/pkg/config"
	"fleetdocs/pkg/logger"
	"fleetdocs/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting fleetdocs service")

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		appLogger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	// Initialize database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize store and services
	store := repository.NewRepositories(db, appLogger)

	visionService := service.NewVisionService(&cfg.OpenAI, appLogger)
	reminderService := service.NewReminderService(store, appLogger)
	processorService := service.NewProcessorService(store, visionService, reminderService, appLogger)

	telegramClient := service.NewTelegramClient(&cfg.Telegram, appLogger)
	botService := service.NewBotService(store, telegramClient, processorService, cfg.Uploads.Dir, appLogger)

	scheduler := service.NewScheduler(processorService, reminderService, &cfg.Scheduler, appLogger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Updates arrive via long polling; the webhook route covers deployments
	// with a public URL.
	poller := service.NewUpdatePoller(telegramClient, botService, appLogger)
	go poller.Run(ctx)

	// Setup router
	app := api.SetupRouter(botService, &cfg.Telegram, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	cancel()
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
