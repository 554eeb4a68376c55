// Package main provides the main entry point for the Avax Blinks API server
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/bootstrap"
	"github.com/amirphl/avax-blinks/app/handlers"
	"github.com/amirphl/avax-blinks/app/router"
	"github.com/amirphl/avax-blinks/app/services"
	"github.com/amirphl/avax-blinks/config"
	"github.com/amirphl/avax-blinks/logging"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ValidateProductionConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging, "avax-blinks-api")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Avax Blinks application",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
	)

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Stop background workers and release backends, most recent first
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	logger.Info("Server stopped")
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()
	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := services.InitTracing(cfg.Tracing, cfg.Deployment)
		if err != nil {
			return nil, err
		}
		stopFuncs = append(stopFuncs, func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownTracing(stopCtx); err != nil {
				logger.Warn("Tracer shutdown failed", zap.Error(err))
			}
		})
	}

	storage, err := bootstrap.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, storage.Close)

	publisher, err := bootstrap.NewEventPublisher(cfg.Events, logger)
	if err != nil {
		storage.Close()
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Event publisher close failed", zap.Error(err))
		}
	})

	records := bootstrap.NewLinkRecordRepository(storage.Store, logger)
	blinkFlow, table, err := bootstrap.NewBlinkFlow(cfg.Blinks, records, publisher, logger)
	if err != nil {
		for i := len(stopFuncs) - 1; i >= 0; i-- {
			stopFuncs[i]()
		}
		return nil, err
	}
	logger.Info("Platform table loaded", zap.String("table", table.Name()), zap.Strings("platforms", table.IDs()))

	blinkHandler := handlers.NewBlinkHandler(blinkFlow, logger, cfg.Server.RequestTimeout)
	appRouter := router.NewFiberRouter(blinkHandler, cfg, logger, storage.Backend)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
