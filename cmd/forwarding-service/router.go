package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kunal768/distributed-echo-system/internal/forwarder"
	"github.com/kunal768/distributed-echo-system/internal/metrics"
	"github.com/kunal768/distributed-echo-system/internal/middleware"
)

func setupRouter(forwardHandler *forwarder.Handler, m *metrics.Metrics, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(m.HTTPMiddleware())

	r.Get("/call-echo", forwardHandler.CallEcho)
	r.Get("/health", forwardHandler.Health)
	r.Get("/status", forwardHandler.Status)
	r.Handle("/metrics", m.Handler())

	return r
}
