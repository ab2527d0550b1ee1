/*
main.go - Application entry point

PURPOSE:
  Starts the promotion engine demo host. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the SQLite config store
  3. Optionally seed configuration from a JSON/YAML document
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: promo.db)
           Use ":memory:" for an in-memory database
  -config  Optional promotion-config document (.json or .yaml/.yml)
           loaded into the store at startup

EXAMPLES:
  # Run with file database
  ./server -db="./data/promo.db"

  # Seed configuration from YAML
  ./server -db=":memory:" -config=promotion.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - factory/config.go: Config document schema
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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/warp/promo-engine/api"
	"github.com/warp/promo-engine/factory"
	"github.com/warp/promo-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "promo.db", "SQLite database path")
	configPath := flag.String("config", "", "promotion config document (.json/.yaml)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Optionally seed configuration
	if *configPath != "" {
		if err := seedConfig(context.Background(), store, *configPath); err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		log.Printf("Loaded promotion config from %s", *configPath)
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
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
		log.Printf("Server starting on http://localhost:%d", *port)
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

// seedConfig parses a config document and writes it into the store.
func seedConfig(ctx context.Context, store *sqlite.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg *factory.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = factory.ParseYAML(data)
	default:
		cfg, err = factory.ParseJSON(data)
	}
	if err != nil {
		return err
	}

	if err := store.SaveGlobalRule(ctx, sqlite.GlobalRule{
		Enabled:        cfg.Global.Enabled,
		MaxFree:        cfg.Global.MaxFree,
		Divisor:        cfg.Global.Divisor,
		CustomerGroups: cfg.Global.CustomerGroups,
		ActiveFrom:     cfg.Global.ActiveFrom,
		ActiveTo:       cfg.Global.ActiveTo,
	}); err != nil {
		return err
	}
	for _, p := range cfg.Products {
		if err := store.SaveProductRule(ctx, sqlite.ProductRule{
			ProductID: p.ProductID,
			Enabled:   p.Enabled,
			MaxFree:   p.MaxFree,
		}); err != nil {
			return err
		}
	}
	return nil
}
