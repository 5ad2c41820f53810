package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/imgw-warning-proxy/internal/adapter/api"
	httpadapter "github.com/couchcryptid/imgw-warning-proxy/internal/adapter/http"
	"github.com/couchcryptid/imgw-warning-proxy/internal/adapter/imgw"
	kafkaadapter "github.com/couchcryptid/imgw-warning-proxy/internal/adapter/kafka"
	"github.com/couchcryptid/imgw-warning-proxy/internal/config"
	"github.com/couchcryptid/imgw-warning-proxy/internal/geo"
	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
	"github.com/couchcryptid/imgw-warning-proxy/internal/pipeline"
	"github.com/couchcryptid/imgw-warning-proxy/internal/service"
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

	regions := geo.NewStore()
	if err := loadBoundaries(context.Background(), warehouse, regions, logger); err != nil {
		logger.Error("failed to load county boundaries", "error", err)
		os.Exit(1)
	}
	logger.Info("county boundaries loaded", "count", regions.Len())

	resolver := geo.NewResolver(geo.NewProjection(), regions)
	warnings := service.NewWarnings(resolver, warehouse, logger, metrics)

	fetcher := imgw.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger, metrics)

	// Kafka publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	sync := pipeline.New(fetcher, warehouse, publisher, logger, metrics)

	// Readiness gates on a completed sync pass only when ingestion runs in
	// this process; otherwise cmd/sync owns ingestion and the query surface
	// is ready as soon as boundaries are loaded.
	var ready httpadapter.ReadinessChecker = sync
	if cfg.SyncInterval == 0 {
		ready = readyImmediately{}
	}

	apiSrv := api.NewServer(cfg.HTTPAddr, warnings, warehouse, logger)
	opsSrv := httpadapter.NewServer(cfg.OpsAddr, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := apiSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
		}
	}()
	go func() {
		if err := opsSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	if cfg.SyncInterval > 0 {
		go sync.RunLoop(ctx, cfg.SyncInterval)
		logger.Info("background sync enabled", "interval", cfg.SyncInterval)
	} else {
		logger.Info("background sync disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type readyImmediately struct{}

func (readyImmediately) CheckReadiness(context.Context) error { return nil }

// loadBoundaries hydrates the in-memory spatial index from the regions table.
func loadBoundaries(ctx context.Context, warehouse *store.Warehouse, regions *geo.Store, logger *slog.Logger) error {
	stored, err := warehouse.Regions(ctx)
	if err != nil {
		return err
	}
	for _, r := range stored {
		boundary, err := geo.DecodeBoundary(r.Boundary)
		if err != nil {
			logger.Warn("skipping region with bad boundary", "teryt", r.Code, "error", err)
			continue
		}
		if err := regions.Load(r.Code, r.Name, boundary); err != nil {
			logger.Warn("skipping degenerate region boundary", "teryt", r.Code, "error", err)
		}
	}
	return nil
}
