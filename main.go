package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	clts "pinwatch/clients"
	"pinwatch/config"
	"pinwatch/internal/app"
	"pinwatch/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if result := cfg.Validate(); !result.Valid {
		for _, e := range result.Errors {
			logger.Error("invalid configuration",
				zap.String("field", e.Field),
				zap.String("message", e.Message),
			)
		}
		logger.Fatal("configuration validation failed")
	}
	logger.Info("starting pinwatch",
		zap.Bool("synthetic", cfg.Synthetic.Enabled),
		zap.Int("port", cfg.APIServer.Port),
	)

	clients := clts.NewClients(logger, cfg)

	shell, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("failed to open shell storage", zap.Error(err))
	}
	defer shell.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	coordinator := app.NewCoordinator(logger, clients.MarketData, cfg.Backend.UserID, app.CoordinatorConfig{
		PinnedTTL:   cfg.Cache.PinnedTTL,
		AlertsTTL:   cfg.Cache.AlertsTTL,
		SnapshotTTL: cfg.Cache.SnapshotTTL,
	})
	coordinator.StartAutoRefresh(ctx, cfg.Cache.PinnedRefresh, cfg.Cache.AlertsRefresh)

	server := app.NewServer(logger, coordinator, clients.Directory, shell, app.ServerConfig{
		Port:            cfg.APIServer.Port,
		AllowedOrigins:  cfg.APIServer.AllowedOrigins,
		MarketplaceHost: cfg.Marketplace.Host,
		PushInterval:    cfg.APIServer.PushInterval,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		server.Stop()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("api server failed", zap.Error(err))
	}
}
