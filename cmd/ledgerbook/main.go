package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ledgerbook/internal/backend"
	"ledgerbook/internal/cache"
	"ledgerbook/internal/cli"
	"ledgerbook/internal/fetch"
	apphttp "ledgerbook/internal/http"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	"ledgerbook/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.MustLoadConfig(cli.SetupLogger("info"))
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	gatherer := fetch.New(result.Backend,
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithLogger(logger),
	)

	snapshots := cache.NewLRUCache[fetch.Result](cfg.SnapshotCacheSize, cfg.SnapshotTTL)
	caches := cache.NewManager(logger)
	registries := cache.NewLRUCache[*ledger.Registry](cfg.RegistryCacheSize, cfg.RegistryTTL)
	caches.Register(snapshots)
	caches.Register(registries)
	caches.Start(ctx, cfg.SnapshotTTL)
	defer caches.Stop()

	ledgers := services.NewLedgerService(gatherer, snapshots,
		services.WithRegistries(registries),
		services.WithLogger(logger),
	)

	srv := apphttp.NewServer(":"+cfg.Port, ledgers, apphttp.Options{
		Logger:             logger,
		DefaultBudget:      cfg.DefaultBudget,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ledgerbook server",
			log.NewFields().WithOperation(log.OpStartup).WithBackend(cfg.DataBackend).ToSlice()...,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			cli.Fatal(logger, "Server error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
