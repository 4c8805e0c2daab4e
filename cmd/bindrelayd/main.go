package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bindrelay/internal/api"
	"bindrelay/internal/config"
	"bindrelay/internal/core"
	"bindrelay/internal/extract"
	"bindrelay/internal/logging"
	bindrelaymcp "bindrelay/internal/mcp"
	"bindrelay/internal/platform"
	"bindrelay/internal/relay"
	"bindrelay/internal/store"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	baseCtx := context.Background()
	storeInst, err := store.Open(baseCtx, cfg.StateDir, cfg.FiringRetention)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer storeInst.DB.Close()

	var tokens platform.TokenSource
	if cfg.Platform.RedisAddr != "" {
		redisTokens := platform.NewRedisTokenSource(cfg.Platform.RedisAddr)
		defer redisTokens.Close()
		tokens = redisTokens
	} else {
		tokens = platform.StaticTokenSource(cfg.Platform.StaticToken)
	}

	assets, err := platform.NewAssetClient(cfg.Platform.AssetURL)
	if err != nil {
		logger.Error("asset client", "err", err)
		os.Exit(1)
	}
	series, err := platform.NewSeriesClient(cfg.Platform.TimescaleURL)
	if err != nil {
		logger.Error("series client", "err", err)
		os.Exit(1)
	}
	alerts, err := platform.NewAlertClient(cfg.Platform.AlertaURL, cfg.Platform.AlertaKey)
	if err != nil {
		logger.Error("alert client", "err", err)
		os.Exit(1)
	}
	contracts, err := platform.NewContractClient(cfg.Platform.BackendURL)
	if err != nil {
		logger.Error("contract client", "err", err)
		os.Exit(1)
	}
	publisher, err := relay.NewClient(cfg.Platform.RelayURL)
	if err != nil {
		logger.Error("relay client", "err", err)
		os.Exit(1)
	}

	runner := core.NewRunner(
		assets,
		alerts,
		tokens,
		&extract.LiveExtractor{Series: series, AttributeBase: cfg.Platform.AttributeBase},
		&extract.AlertExtractor{AttributeBase: cfg.Platform.AttributeBase},
		publisher,
		logging.ForComponent(logger, "runner"),
	)
	scheduler := core.NewScheduler(storeInst, runner, logging.ForComponent(logger, "scheduler"))

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	scheduler.Start(ctx)
	go scheduler.RunReconcileLoop(ctx, cfg.ReconcileInterval)

	switch cfg.Mode {
	case "http":
		runHTTPMode(cfg, storeInst, scheduler, contracts, tokens, logger)
	case "mcp":
		runMCPMode(storeInst, scheduler, contracts, tokens, logger, cancel)
	case "both":
		runBothMode(cfg, storeInst, scheduler, contracts, tokens, logger)
	}
}

// runHTTPMode serves the HTTP API until a signal or server error.
func runHTTPMode(cfg *config.Config, st *store.Store, scheduler *core.Scheduler, contracts api.ContractSource, tokens platform.TokenSource, logger *slog.Logger) {
	server, err := api.NewServer(cfg.Server.Addr, cfg.Server.AuthToken, st, scheduler, contracts, tokens, logger)
	if err != nil {
		logger.Error("create server", "err", err)
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	stopScheduler(scheduler, cfg.ShutdownGrace, logger)
}

// runMCPMode serves MCP tools on stdio.
func runMCPMode(st *store.Store, scheduler *core.Scheduler, contracts api.ContractSource, tokens platform.TokenSource, logger *slog.Logger, cancel context.CancelFunc) {
	mcpServer := bindrelaymcp.NewMCPServer(st, scheduler, contracts, tokens, logger)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("received signal, shutting down")
		cancel()
	}()

	if err := mcpServer.Run(); err != nil {
		logger.Error("mcp server error", "err", err)
		os.Exit(1)
	}
}

// runBothMode serves the HTTP API and MCP tools concurrently.
func runBothMode(cfg *config.Config, st *store.Store, scheduler *core.Scheduler, contracts api.ContractSource, tokens platform.TokenSource, logger *slog.Logger) {
	mcpServer := bindrelaymcp.NewMCPServer(st, scheduler, contracts, tokens, logger)
	mcpErr := make(chan error, 1)
	go func() {
		if err := mcpServer.Run(); err != nil {
			mcpErr <- err
		}
	}()

	server, err := api.NewServer(cfg.Server.Addr, cfg.Server.AuthToken, st, scheduler, contracts, tokens, logger)
	if err != nil {
		logger.Error("create server", "err", err)
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	case err := <-mcpErr:
		logger.Error("mcp server error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	stopScheduler(scheduler, cfg.ShutdownGrace, logger)
	logger.Info("shutdown complete")
}

// stopScheduler cancels all live timers and waits out in-flight firings.
func stopScheduler(scheduler *core.Scheduler, grace time.Duration, logger *slog.Logger) {
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(grace):
		logger.Warn("scheduler stop timed out")
	}
}
