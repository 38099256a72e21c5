package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kunal768/distributed-echo-system/config"
	"github.com/kunal768/distributed-echo-system/internal/forwarder"
	"github.com/kunal768/distributed-echo-system/internal/healthcheck"
	"github.com/kunal768/distributed-echo-system/internal/httpserver"
	"github.com/kunal768/distributed-echo-system/internal/metrics"
	"github.com/kunal768/distributed-echo-system/internal/upstream"
	"github.com/kunal768/distributed-echo-system/pkg/logger"
)

const serviceName = "forwarding-service"

func main() {
	configPath := pflag.String("config", "", "path to a configuration file")
	pflag.Parse()

	cfg, err := config.LoadForwarding(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, serviceName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(serviceName, true)

	client, err := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout())
	if err != nil {
		log.Error("Failed to initialize upstream client",
			slog.String("base_url", cfg.Upstream.BaseURL),
			slog.Any("err", err))
		os.Exit(1)
	}

	// Interval already validated during config load.
	interval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		log.Error("Failed to parse health check interval", slog.Any("err", err))
		os.Exit(1)
	}

	go healthcheck.Watch(ctx, client, interval, log, m)

	forwardHandler := forwarder.NewHandler(log, client, m)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(forwardHandler, m, log), log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Starting forwarding service",
		slog.String("address", cfg.Server.Address),
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.Duration("upstream_timeout", cfg.Upstream.Timeout()))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting forwarding service", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
