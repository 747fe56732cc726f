package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"stock-rag/internal/adapter/httpapi"
	"stock-rag/internal/di"
	"stock-rag/internal/infra"
	"stock-rag/internal/infra/config"
	"stock-rag/internal/infra/logger"
	"stock-rag/internal/infra/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	shutdownTelemetry, err := telemetry.Init(context.Background(), "stock-rag", cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init telemetry: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.OTelEnabled)
	slog.SetDefault(log)

	pool, err := infra.NewPostgresPool(context.Background(), cfg.DatabaseURL())
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	components := di.NewApplicationComponents(cfg, pool, log)

	// Create the collection up front so the first search does not hit
	// a missing table. Ingest would also create it lazily.
	if err := components.VectorIndex.EnsureCollection(context.Background(), cfg.EmbeddingDimension); err != nil {
		log.Warn("collection_bootstrap_failed", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	components.Handler.Register(e, httpapi.InternalAPIKey(cfg.InternalAPIKey, log))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("Starting server", "addr", addr, "collection", cfg.Collection)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		log.Warn("telemetry_shutdown_failed", "error", err)
	}
}
