package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vetdesk/internal/config"
	"vetdesk/internal/guard"
	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/queue"
	"vetdesk/internal/store"
	"vetdesk/internal/worker"
)

// A standalone recorder: drains the shared Redis log queue into Postgres so
// stand-in API instances don't have to.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	log.Println("🚀 Starting Vetdesk Recorder...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(*cfg.Logging.RedactPII)

	// 1. Initialize Redis
	if cfg.Redis.Addr == "" {
		log.Fatal("❌ REDIS_ADDR environment variable is required")
	}
	rdb, err := guard.Connect(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("✅ Connected to Redis")

	// 2. Initialize Database
	if cfg.Stub.DatabaseURL == "" {
		log.Fatal("❌ DB_URL environment variable is required")
	}
	db, err := store.Open(cfg.Stub.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start the processing loop
	worker.Start(ctx, queue.NewRedis(rdb), db)
}
