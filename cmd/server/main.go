/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the BrightPath Outreach Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Start the background allocation scheduler
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: outreach.db)
              Use ":memory:" for in-memory database
  -interval   Scheduler check interval (default: 24h)
  -window     Workdays to keep scheduled ahead (default: 7)
  -calls      Calls to allocate per workday (default: 7)
  -scheduler  Enable the background scheduler (default: true)

ENVIRONMENT:
  A .env file can override flag defaults:
    PORT, DB_PATH

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and wait for the current run
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/outreach.db"

  # Run without the background scheduler
  ./server -scheduler=false

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background allocation driver
  - store/sqlite/sqlite.go: Database implementation
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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brightpath/outreach-engine/api"
	"github.com/brightpath/outreach-engine/engine"
	"github.com/brightpath/outreach-engine/store/sqlite"
)

func main() {
	// .env is optional; flags still win over it
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	// Flags
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "outreach.db"), "SQLite database path")
	interval := flag.Duration("interval", 24*time.Hour, "Scheduler check interval")
	window := flag.Int("window", 7, "Workdays to keep scheduled ahead")
	calls := flag.Int("calls", engine.HardDailyCallCap, "Calls to allocate per workday")
	schedulerOn := flag.Bool("scheduler", true, "Enable the background scheduler")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize scheduler and handler
	scheduler := api.NewOutreachScheduler(store)
	scheduler.CheckInterval = *interval
	scheduler.WindowDays = *window
	scheduler.CallsPerDay = *calls
	scheduler.Enabled = *schedulerOn
	scheduler.Start()

	handler := api.NewHandler(store)
	handler.Scheduler = scheduler

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📞 API available at http://localhost:%d/api", *port)
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
	scheduler.Stop()

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
