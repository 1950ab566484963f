/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ICL engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), then the environment, then apply flags
  2. Build the zap logger and Prometheus metrics
  3. Initialize SQLite store
  4. Create the loan service and API handler
  5. Start the status refresh scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT (or a .env file in the working directory):
  PORT, LOG_LEVEL, DB_PATH, STATUS_REFRESH_INTERVAL, STATUS_REFRESH_ENABLED,
  REFRESH_CONCURRENCY, DECIMAL_PLACES. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/icl.db"

  # Run with in-memory database and debug logs
  LOG_LEVEL=debug ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - loan/service.go: Account operations
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/icl-engine/api"
	"github.com/warp/icl-engine/config"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/loan"
	"github.com/warp/icl-engine/observability"
	"github.com/warp/icl-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is normal; the environment and defaults apply
	dotenvErr := config.LoadDotEnv()
	cfg := config.Load()

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()
	if dotenvErr == nil {
		logger.Info(".env file loaded")
	}

	metrics := observability.NewMetrics()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	eng := engine.New()
	eng.Places = cfg.DecimalPlaces

	svc := loan.NewService(store, eng, logger.Named("loan"), metrics)
	svc.RefreshConcurrency = cfg.RefreshConcurrency

	handler := api.NewHandler(svc, logger.Named("api"))
	router := api.NewRouter(handler, metrics)

	scheduler := api.NewStatusScheduler(svc, logger.Named("scheduler"))
	scheduler.CheckInterval = cfg.StatusRefreshInterval
	scheduler.Enabled = cfg.StatusRefreshEnabled
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", *dbPath),
			zap.Int32("decimal_places", eng.Places),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
