/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the loan book server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load LOANBOOK_* environment, then apply command-line flags
  2. Build the zap logger
  3. Open the SQLite store
  4. Wire ledger, lending service and daily reporter
  5. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides LOANBOOK_PORT)
  -db      SQLite database path (overrides LOANBOOK_DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the reporter
  4. Close database connection

EXAMPLES:
  ./server -db="./data/loanbook.db"
  LOANBOOK_LOG_FORMAT=json ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
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

	"github.com/warp/loanbook/api"
	"github.com/warp/loanbook/config"
	"github.com/warp/loanbook/ledger"
	"github.com/warp/loanbook/lending"
	"github.com/warp/loanbook/logging"
	"github.com/warp/loanbook/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port, cfg.DBPath = *port, *dbPath
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath, sqlite.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	led := ledger.NewLedger(store,
		ledger.WithClock(func() time.Time { return time.Now().In(loc) }),
		ledger.WithAccount(cfg.AccountID),
		ledger.WithActor(cfg.Actor),
	)
	svc := lending.NewService(store, led,
		lending.WithLogger(log.Named("lending")),
		lending.WithFormatter(ledger.NewFormatter(cfg.CurrencySymbol, cfg.Locale)),
	)

	reporter := lending.NewDailyReporter(svc, cfg.ReportInterval)
	reporter.Start()
	defer reporter.Stop()

	handler := api.NewHandler(svc, log.Named("api"))
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.String("timezone", loc.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
