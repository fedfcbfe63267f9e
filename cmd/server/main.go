/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the salary API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, .env, SALARY_* environment, flags)
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Optionally load the demo school
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: salary.db)
           Use ":memory:" for in-memory database
  -env     dotenv file (default: .env, ignored when missing)
  -demo    load the music-school scenario on startup

  Flags override the environment only when passed explicitly.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown_timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/salary.db"

  # Scratch database with demo data, JSON logs
  SALARY_LOG_FORMAT=json ./server -db=":memory:" -demo

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/salary-engine/api"
	"github.com/warp/salary-engine/config"
	"github.com/warp/salary-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "salary.db", "SQLite database path")
	envFile := flag.String("env", ".env", "dotenv file")
	demo := flag.Bool("demo", false, "load the demo school on startup")
	flag.Parse()

	loader, err := config.NewLoader(*envFile)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			loader.Set("port", *port)
		case "db":
			loader.Set("db_path", *dbPath)
		case "demo":
			loader.Set("demo", *demo)
		}
	})
	cfg, err := loader.Resolve()
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stderr)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, logger)

	if cfg.Demo {
		if err := handler.Load(context.Background(), "music-school"); err != nil {
			logger.Warn("failed to load demo scenario", "error", err)
		}
	}

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins...)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.Addr(),
			"db_path", cfg.DBPath,
			"demo", cfg.Demo)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server", "timeout", cfg.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
