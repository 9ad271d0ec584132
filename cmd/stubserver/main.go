package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"outreach-engine/orchestrator/internal/config"
	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/internal/server"
	"outreach-engine/orchestrator/internal/state"
	"outreach-engine/orchestrator/internal/store"
)

// stepDelay paces the simulated pipeline stages.
const stepDelay = 800 * time.Millisecond

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger.Info("Starting outreach stub backend", "addr", cfg.Stub.Addr)

	// Optional Postgres session archive
	var archive state.SessionArchiver
	if cfg.Stub.Archive.Enable {
		pool, err := initArchive(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize session archive", "error", err)
			log.Fatalf("Session archive initialization failed: %v", err)
		}
		defer pool.Close()

		pgArchive := store.NewPostgresSessionArchive(pool)
		if err := pgArchive.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to create archive schema", "error", err)
			log.Fatalf("Session archive schema failed: %v", err)
		}
		archive = pgArchive
		logger.Info("Session archive connected", "host", cfg.Stub.Archive.Host)
	}

	// State registry and simulated pipeline runner
	mgr := state.NewManager(logger, archive)
	runner := state.NewRunner(mgr, logger, stepDelay)

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("outreach-stub-backend"))

	srv, err := server.NewServer(mgr, runner, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		log.Fatalf("Server initialization failed: %v", err)
	}
	srv.Register(e)

	logger.Info("REST API handlers mounted")

	httpServer := &http.Server{
		Addr:         cfg.Stub.Addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Stub.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := httpServer.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func initArchive(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	a := cfg.Stub.Archive
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.Host, a.Port, a.User, a.Password, a.Name, a.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
