package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vetdesk/internal/cache"
	"vetdesk/internal/config"
	"vetdesk/internal/guard"
	"vetdesk/internal/lookup"
	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/queue"
	"vetdesk/internal/store"
	"vetdesk/internal/stubapi"
	"vetdesk/internal/validator"
	"vetdesk/internal/worker"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(*cfg.Logging.RedactPII)

	if cfg.Stub.APISecretKey == "" {
		fmt.Println("⚠️  API_SECRET_KEY not set. Protected routes will answer 500.")
	}

	// Build the root context used for background goroutines. Cancelling it
	// on shutdown stops cache cleanup and the recorder.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Result cache and log queue: Redis when configured, memory otherwise
	checkOpts := validator.Options{CacheTTL: cfg.Stub.CacheTTL()}
	var q queue.Queue
	var cacheSize func() int
	if cfg.Redis.Addr != "" {
		fmt.Printf("🔌 Connecting to Redis at %s...\n", cfg.Redis.Addr)
		rdb, err := guard.Connect(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		checkOpts.Cache = cache.NewRedisStore(rdb)
		q = queue.NewRedis(rdb)
		fmt.Println("✅ Connected to Redis (shared cache + log queue)")
	} else {
		mem := cache.New()
		mem.StartCleanup(ctx, 5*time.Minute)
		checkOpts.Cache = mem
		cacheSize = mem.Len
		q = queue.NewMemory(4096)
		fmt.Println("✅ In-memory cache started (eviction interval: 5m)")
	}

	if cfg.Stub.CheckMX {
		checkOpts.Resolver = lookup.NewResolver()
		fmt.Println("🛡️  MX lookups enabled")
	}

	// 2. Validation log store
	var logs store.LogStore = store.NewMemory()
	database := "memory"
	if cfg.Stub.DatabaseURL != "" {
		fmt.Println("🔌 Connecting to Database...")
		db, err := store.Open(cfg.Stub.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to DB: %v", err)
		}
		logs = db
		database = "postgres"
		if strings.HasPrefix(cfg.Stub.DatabaseURL, "sqlite:") {
			database = "sqlite"
		}
		fmt.Printf("✅ Connected to %s & Migrations Applied\n", database)
	}
	defer logs.Close()

	recorderDone := make(chan struct{})
	go func() {
		worker.Start(ctx, q, logs)
		close(recorderDone)
	}()

	srv := stubapi.New(stubapi.Options{
		Secret:         cfg.Stub.APISecretKey,
		AllowedOrigins: cfg.Stub.AllowedOrigins,
		Checker:        validator.NewChecker(checkOpts),
		Logs:           logs,
		Queue:          q,
		CacheSize:      cacheSize,
		Database:       database,
		Version:        version,
	})

	server := &http.Server{
		Addr:         cfg.Stub.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM / SIGINT.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		fmt.Printf("🚀 Vetdesk stand-in API v%s running on %s\n", version, cfg.Stub.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	<-quit
	fmt.Println("⏳ Shutdown signal received, draining in-flight requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}

	cancel()
	<-recorderDone
	fmt.Println("✅ Server shut down cleanly.")
}
