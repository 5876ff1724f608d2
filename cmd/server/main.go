package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/api"
	"github.com/yourusername/media-fetch-go/api/handlers"
	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"github.com/yourusername/media-fetch-go/internal/infrastructure"
	"github.com/yourusername/media-fetch-go/pkg/logger"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	envFile    = flag.String("env-file", ".env", "Path to .env file (ignored when missing)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env only fills variables that are not already set
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting media fetch server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Bool("history", config.History.Enabled),
		zap.Bool("cache", config.Cache.Enabled),
		zap.Bool("tiktok_browser", config.TikTok.UseBrowser))

	adapters, err := infrastructure.NewAdapterSet(config, log)
	if err != nil {
		return fmt.Errorf("failed to create adapters: %w", err)
	}
	defer func() {
		if err := adapters.Close(); err != nil {
			log.Warn("Failed to release adapter resources", zap.Error(err))
		}
	}()

	dispatcher, err := app.NewDispatcher(adapters.Adapters(), log.Named("dispatcher"))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	opts := app.FetchServiceOptions{
		DefaultCreds: app.CredentialsFromConfig(config),
		Notifier:     infrastructure.NewNotificationService(&config.Notification, nil, log.Named("notify")),
	}
	checks := map[string]handlers.ReadinessCheck{}

	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize history: %w", err)
		}
		defer repo.Close()
		opts.Repository = repo
		checks["history"] = func(context.Context) error {
			_, err := repo.Count()
			return err
		}
	}

	if config.Cache.Enabled {
		cache, err := connectCache(config, log)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Cache = cache
		checks["cache"] = cache.Ping
	}

	service := app.NewFetchService(dispatcher, opts, log.Named("fetch"))
	router := api.SetupRouter(service, checks, log.Named("http"))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func connectCache(config *domain.Config, log *zap.Logger) (*infrastructure.RedisAssetCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cache, err := infrastructure.NewRedisAssetCache(ctx, &config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}
	log.Info("Asset cache connected",
		zap.String("address", config.Cache.Address),
		zap.Duration("ttl", config.Cache.TTL))
	return cache, nil
}
