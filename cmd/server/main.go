// Package main is the entry point for the attraddr server.
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

	"github.com/joho/godotenv"

	"github.com/attraddr/attraddr-go/internal/api"
	"github.com/attraddr/attraddr-go/internal/config"
	"github.com/attraddr/attraddr-go/internal/database"
	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/pubsub"
	"github.com/attraddr/attraddr-go/internal/services/session"
	"github.com/attraddr/attraddr-go/internal/services/settings"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Print startup banner
	printBanner(cfg)

	// Connect to database
	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.Debug || cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	// Auto-migrate database schema
	log.Println("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrations complete")

	// Wire the session with persistence and notifications
	store := settings.NewStore(db)
	bus := pubsub.New()
	sess := session.New(store, bus)

	if err := sess.LoadConfigs(context.Background()); err != nil {
		log.Printf("Warning: failed to load saved configurations: %v", err)
	}

	// Load GDTF profiles from the configured folder
	if cfg.GDTFFolder != "" {
		if registry, err := gdtf.LoadFolder(cfg.GDTFFolder); err != nil {
			log.Printf("Warning: failed to load GDTF folder %s: %v", cfg.GDTFFolder, err)
		} else if registry.Len() > 0 {
			sess.LoadProfiles(registry)
			log.Printf("Loaded %d GDTF profiles from %s", registry.Len(), cfg.GDTFFolder)
		}
	}

	// Create router
	server := api.NewServer(sess, bus, Version)
	router := server.Router(cfg)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  Attraddr Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  GDTF folder: %s\n", cfg.GDTFFolder)
	fmt.Println("============================================")
}
