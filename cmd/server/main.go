/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the batch operation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and optional YAML config
  2. Initialize SQLite store (state and event log)
  3. Wire the eight contract services
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: batches.db)
           Use ":memory:" for an in-memory database
  -config  Optional YAML config path; flags override file values

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/batches.db"

  # Run with a config file
  ./server -config=server.yaml

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
  - config.go: YAML configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/batch-engine/api"
	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/budget"
	"github.com/warp/batch-engine/conversion"
	"github.com/warp/batch-engine/goal"
	"github.com/warp/batch-engine/history"
	"github.com/warp/batch-engine/notify"
	"github.com/warp/batch-engine/recommend"
	"github.com/warp/batch-engine/store/sqlite"
	"github.com/warp/batch-engine/transfer"
	"github.com/warp/batch-engine/wallet"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "", "YAML config path")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DB = *dbPath
	}

	// Initialize store; it backs both contract state and the event log.
	store, err := sqlite.New(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// The API sits behind an authenticating gateway that vouches for
	// X-Caller, so the host auth boundary accepts all proven callers.
	authn := batch.AllowAll{}
	clock := batch.SystemClock{}

	token := transfer.NewMemoryToken()
	if cfg.Treasury.Account != "" {
		token.Mint(batch.Account(cfg.Treasury.Account), batch.Amount(cfg.Treasury.Balance))
	}

	handler := &api.Handler{
		Transfer:   transfer.NewService(store, authn, clock, store, token),
		Conversion: conversion.NewService(store, authn, clock, store, conversion.StubAssets{Funded: batch.Amount(cfg.StubFunding)}),
		Wallet:     wallet.NewService(store, authn, clock, store),
		Budget:     budget.NewService(store, authn, clock, store),
		Goal:       goal.NewService(store, authn, clock, store),
		Notify:     notify.NewService(store, authn, clock, store),
		History:    history.NewService(store, authn, clock, store),
		Recommend:  recommend.NewService(store, authn, clock, store),
		Events:     store,
	}

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
