// cmd/historian/main.go drains the partner event queue from Redis into the
// partner_events table in PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/fittogether/internal/config"
	"github.com/jason-s-yu/fittogether/internal/database"
	"github.com/jason-s-yu/fittogether/internal/events"
	"github.com/jason-s-yu/fittogether/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := events.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrations: %v", err)
	}

	svc := historian.New(
		historian.NewRedisQueue(rdb, cfg.EventsQueue),
		database.NewStore(pool),
		logger,
		cfg.HistorianBatchSize,
		cfg.HistorianFlushInterval,
	)
	if err := svc.Run(ctx); err != nil {
		logger.Errorf("final flush failed: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
