package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/handler"
	"github.com/mark-c-hall/swapi-characters/internal/logging"
	"github.com/mark-c-hall/swapi-characters/internal/roster"
	"github.com/mark-c-hall/swapi-characters/internal/swapi"
	"github.com/mark-c-hall/swapi-characters/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.Log.Format = "json"
	logger := logging.New(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.Options{Registerer: registry})
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}

	svc := roster.NewService(swapi.NewClient(*cfg), logger)

	h, err := handler.NewHandler(svc, registry, cfg.Server, logger)
	if err != nil {
		log.Fatalf("failed to initialize handler: %v", err)
	}

	srv := http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", "error", err)
	}
	if err := shutdownTelemetry(timeoutCtx); err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
