package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket_desk/internal/config"
	"ticket_desk/internal/market"
	"ticket_desk/internal/precision"
	"ticket_desk/internal/submit"
	"ticket_desk/pkg/concurrency"
	"ticket_desk/pkg/liveserver"
	"ticket_desk/pkg/logging"
	"ticket_desk/pkg/telemetry"

	"golang.org/x/sync/errgroup"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/ticket_server.yaml", "Path to configuration file")
	port := flag.String("port", "", "Server port (overrides config)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ticket_server version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *port != "" {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting ticket_server",
		"version", version,
		"symbols", cfg.Feed.Symbols,
		"port", cfg.Server.Port,
	)

	var tel *telemetry.Telemetry
	if cfg.Telemetry.EnableMetrics {
		tel, err = telemetry.Setup(cfg.App.Name)
		if err != nil {
			logger.Warn("Failed to initialize telemetry", "error", err)
		} else {
			logger.Info("Telemetry initialized")
		}
	}

	registry := precision.NewRegistry(cfg.Assets)

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "TickBroadcastPool",
		MaxWorkers:  cfg.Concurrency.BroadcastPoolSize,
		MaxCapacity: cfg.Concurrency.BroadcastPoolBuffer,
		NonBlocking: true,
	}, logger)

	feed, err := market.NewSimulator(
		cfg.Feed.Symbols,
		cfg.Feed.InitialPrices,
		time.Duration(cfg.Feed.TickIntervalMs)*time.Millisecond,
		cfg.Feed.MaxDrift,
		pool,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create price feed", "error", err)
	}

	journal, err := submit.NewSQLiteJournal(cfg.Journal.Path)
	if err != nil {
		logger.Fatal("Failed to open ticket journal", "error", err, "path", cfg.Journal.Path)
	}
	defer journal.Close()

	svc := submit.NewService(feed, journal, logger)
	svc.SetSubmitter(submit.NewLogGateway(logger))

	hub := liveserver.NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	logger.Info("WebSocket hub started")

	if err := feed.Start(ctx); err != nil {
		logger.Fatal("Failed to start price feed", "error", err)
	}
	logger.Info("Price feed started",
		"symbols", cfg.Feed.Symbols,
		"interval_ms", cfg.Feed.TickIntervalMs,
	)

	streams := NewStreamHandlers(feed, hub, registry, logger)
	streams.Start(ctx)

	server := liveserver.NewServer(hub, svc, registry, liveserver.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxConnections: cfg.Server.MaxConnections,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Production:     cfg.Server.Production,
	}, logger)
	server.SetFeedHealth(feed)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP/WebSocket server", "port", cfg.Server.Port)
		return server.Start(gctx, cfg.Server.Port)
	})

	logger.Info("ticket_server is running",
		"websocket_url", fmt.Sprintf("ws://localhost%s/ws", cfg.Server.Port),
		"health_url", fmt.Sprintf("http://localhost%s/health", cfg.Server.Port),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-sigChan:
		logger.Info("Received shutdown signal, gracefully shutting down...")
	case <-gctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", "error", err)
	}
	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
	}
	if err := feed.Stop(); err != nil {
		logger.Error("Error stopping price feed", "error", err)
	}
	pool.Stop()

	if tel != nil {
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during telemetry shutdown", "error", err)
		}
	}

	logger.Info("ticket_server stopped")
}
