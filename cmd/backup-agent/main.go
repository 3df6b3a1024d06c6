package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.lumeweb.com/backup-agent/internal/api"
	"go.lumeweb.com/backup-agent/internal/backup"
	"go.lumeweb.com/backup-agent/internal/config"
	"go.lumeweb.com/backup-agent/internal/metrics"
	"go.lumeweb.com/backup-agent/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	// Embedded zone database for BACKUP_TIMEZONE on minimal images
	_ "time/tzdata"
)

const shutdownTimeout = 60 * time.Second

type Application struct {
	logger           *zap.Logger
	config           *config.Config
	storageClient    storage.Client
	backupManager    *backup.BackupManager
	metricsCollector *metrics.Collector
	apiServer        *api.Server
	startTime        time.Time
}

func initLogger(level string) (*zap.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Monitoring.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := app.start(ctx); err != nil {
		logger.Fatal("Failed to start application", zap.Error(err))
	}

	// Block until a shutdown signal arrives
	<-ctx.Done()
	app.logger.Info("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.shutdown(shutdownCtx); err != nil {
		app.logger.Error("Graceful shutdown incomplete", zap.Error(err))
		return
	}
	app.logger.Info("Graceful shutdown completed")
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	// Initialize metrics collector
	registry := prometheus.NewRegistry()
	metricsCollector, err := metrics.NewCollector(cfg, logger, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}

	// Initialize storage client, timed by the collector
	client, err := storage.NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	storageClient := storage.Instrument(client, metricsCollector)

	// Initialize backup manager
	backupManager, err := backup.NewManager(cfg, logger, storageClient, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup manager: %w", err)
	}

	apiServer, err := api.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}

	app := &Application{
		logger:           logger,
		config:           cfg,
		storageClient:    storageClient,
		backupManager:    backupManager,
		metricsCollector: metricsCollector,
		apiServer:        apiServer,
		startTime:        time.Now(),
	}

	return app, nil
}

func (app *Application) start(ctx context.Context) error {
	// Start metrics collector
	if err := app.metricsCollector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics collector: %w", err)
	}

	if err := app.apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	// Start backup scheduler if enabled
	if app.config.Backup.Enabled {
		if err := app.backupManager.ConfigureBackupSchedules(); err != nil {
			return fmt.Errorf("failed to configure backup schedules: %w", err)
		}
		app.backupManager.Start()
	} else {
		app.logger.Warn("Backups disabled, only the health endpoint is served")
	}

	app.logger.Info("Application started successfully",
		zap.Time("start_time", app.startTime),
		zap.String("storage_provider", app.config.Storage.Provider),
	)

	return nil
}

// shutdown stops every component concurrently and returns the first error
func (app *Application) shutdown(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error { return app.backupManager.Stop(ctx) })
	g.Go(func() error { return app.apiServer.Stop(ctx) })
	g.Go(func() error { return app.metricsCollector.Stop(ctx) })

	return g.Wait()
}
