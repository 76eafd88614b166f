package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savegress/finboard/internal/api"
	"github.com/savegress/finboard/internal/belvo"
	"github.com/savegress/finboard/internal/cache"
	"github.com/savegress/finboard/internal/categorizer"
	"github.com/savegress/finboard/internal/config"
	"github.com/savegress/finboard/internal/database"
	"github.com/savegress/finboard/internal/ingest"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Seed categories and rules if configured
	if cfg.SeedFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Seed(ctx, cfg.SeedFile); err != nil {
			cancel()
			log.Fatalf("Failed to seed database: %v", err)
		}
		cancel()
	}

	// Initialize rule cache
	ruleCache, err := cache.New(&cache.Config{
		URL:       cfg.RedisURL,
		KeyPrefix: "finboard",
		Enabled:   cfg.RedisEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer ruleCache.Close()

	ruleSource := cache.NewRuleSource(db, ruleCache, time.Duration(cfg.RuleCacheTTLSeconds)*time.Second)

	// Wire the ingestion pipeline and handlers
	engine := categorizer.NewEngine(cfg.DefaultCategoryID)
	processor := ingest.NewProcessor(db, ruleSource, engine)
	learner := categorizer.NewLearner(db)
	aggregator := belvo.NewClient(cfg)

	handlers := api.NewHandlers(db, processor, learner, ruleSource, aggregator)
	router := api.NewRouter(cfg, handlers)

	// Start pprof server if enabled
	if cfg.EnablePprof {
		go func() {
			pprofAddr := fmt.Sprintf("localhost:%d", cfg.PprofPort)
			log.Printf("Starting pprof server on %s", pprofAddr)
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

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
		log.Printf("Finboard API server starting on port %d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
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

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
