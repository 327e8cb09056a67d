// Command server runs the Confide API on top of an embedded engine instance.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confide/internal/config"
	"confide/internal/engine"
	"confide/internal/middleware"
	"confide/internal/observability"
	"confide/internal/server"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		middleware.Logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	middleware.InitMiddleware(cfg)

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "confide-api",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.SamplerRatio,
	})
	if err != nil {
		middleware.Logger.Warn("tracing disabled", "error", err)
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	eng := engine.New(cfg)
	if err := eng.Init(ctx); err != nil {
		middleware.Logger.Error("engine initialization failed", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout: 30 * time.Second,
	})
	srv := server.NewServer(cfg, eng)
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			middleware.Logger.Error("server stopped", "error", err)
		}
	}()
	middleware.Logger.Info("server started", "port", cfg.Port, "degraded", eng.Degraded())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	middleware.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		middleware.Logger.Warn("http shutdown", "error", err)
	}
	if err := eng.Close(shutdownCtx); err != nil {
		middleware.Logger.Warn("engine shutdown", "error", err)
	}
}
