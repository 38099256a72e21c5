package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kunal768/distributed-echo-system/config"
	"github.com/kunal768/distributed-echo-system/internal/echo"
	"github.com/kunal768/distributed-echo-system/internal/httpserver"
	"github.com/kunal768/distributed-echo-system/internal/metrics"
	"github.com/kunal768/distributed-echo-system/pkg/logger"
)

const serviceName = "echo-service"

func main() {
	configPath := pflag.String("config", "", "path to a configuration file")
	pflag.Parse()

	cfg, err := config.LoadEcho(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, serviceName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(serviceName, false)

	echoHandler := echo.NewHandler(log)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(echoHandler, m, log), log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Starting echo service", slog.String("address", cfg.Server.Address))

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
			log.Error("Error starting echo service", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
