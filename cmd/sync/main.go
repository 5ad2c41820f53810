// One-shot feed ingestion. Fetches the current warning feed, reconciles it
// into the warehouse, and exits. Meant for cron-style scheduling when the
// server runs without a background sync loop.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/imgw-warning-proxy/internal/adapter/imgw"
	kafkaadapter "github.com/couchcryptid/imgw-warning-proxy/internal/adapter/kafka"
	"github.com/couchcryptid/imgw-warning-proxy/internal/config"
	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
	"github.com/couchcryptid/imgw-warning-proxy/internal/pipeline"
	"github.com/couchcryptid/imgw-warning-proxy/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	warehouse, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open warehouse", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer warehouse.Close()

	fetcher := imgw.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger, metrics)

	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	}

	sync := pipeline.New(fetcher, warehouse, publisher, logger, metrics)
	result := sync.Run(context.Background())

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("sync finished",
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed", result.Failed)

	if result.Failed > 0 {
		os.Exit(1)
	}
}
