package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tendant/doc-convert-pipeline/internal/cache"
	"github.com/tendant/doc-convert-pipeline/internal/config"
	"github.com/tendant/doc-convert-pipeline/internal/engine"
	"github.com/tendant/doc-convert-pipeline/internal/handlers"
	"github.com/tendant/doc-convert-pipeline/internal/ledger"
	"github.com/tendant/doc-convert-pipeline/internal/pipeline"
	"github.com/tendant/doc-convert-pipeline/internal/postprocess"
	"github.com/tendant/doc-convert-pipeline/internal/stats"
	"github.com/tendant/doc-convert-pipeline/internal/storage"
	"github.com/tendant/doc-convert-pipeline/internal/sweeper"
)

// Document conversion server
// PDF to Word with engine fallback, content-addressed result caching,
// and time-based retention of uploads and artifacts
func main() {
	// .env is optional; real deployments use environment variables
	_ = godotenv.Load()

	cfg := config.Load()

	log.Printf("Document Conversion Server")
	log.Printf("  HTTP address: %s", cfg.HTTPAddr)
	log.Printf("  Upload directory: %s", cfg.UploadDir)
	log.Printf("  Converted directory: %s", cfg.ConvertedDir)
	log.Printf("  Cache TTL: %s", cfg.CacheTTL)
	log.Printf("  Retention window: %s", cfg.RetentionWindow)

	uploads, err := storage.NewFilesystemStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}
	artifacts, err := storage.NewFilesystemStore(cfg.ConvertedDir)
	if err != nil {
		log.Fatalf("Failed to initialize artifact storage: %v", err)
	}
	log.Printf("✓ File storage initialized")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStartup()

	// Redis is optional: without it every request is recomputed
	var resultCache cache.ResultCache = cache.Noop{}
	var counter cache.Counter = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.Connect(startupCtx, cfg.RedisURL, cfg.CacheTTL, artifacts)
		if err != nil {
			log.Printf("Redis unavailable, caching disabled: %v", err)
		} else {
			resultCache = redisCache
			counter = redisCache
			log.Printf("✓ Result cache connected")
		}
	}

	// The usage ledger is optional as well
	var usageLedger pipeline.UsageLedger
	if cfg.DatabaseURL != "" {
		l, err := ledger.Open(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Ledger unavailable, usage tracking disabled: %v", err)
		} else {
			defer l.Close()
			usageLedger = l
			log.Printf("✓ Usage ledger connected")
		}
	}

	registry := engine.NewRegistry(startupCtx,
		engine.NewSofficeEngine(cfg.SofficePath),
		engine.NewGotenbergEngine(cfg.GotenbergURL),
	)

	aggregator := stats.New(counter)
	post := postprocess.New(cfg.ReshapePolicy)
	orch := pipeline.NewOrchestrator(uploads, artifacts, resultCache, registry, post, aggregator, usageLedger)

	sw := sweeper.New(cfg.RetentionWindow, cfg.SweepInterval, uploads, artifacts)
	sw.Start()
	defer sw.Stop()
	log.Printf("✓ Retention sweeper started (window=%s interval=%s)", cfg.RetentionWindow, cfg.SweepInterval)

	h := handlers.New(orch, artifacts, registry, resultCache, aggregator, cfg.MaxUploadBytes)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: h.Routes(),
	}

	go func() {
		log.Printf("✓ Conversion server ready on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
