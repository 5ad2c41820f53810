package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
)

// Fetcher retrieves the current raw warning records from the feed.
// A failed fetch surfaces as zero records, not as an error.
type Fetcher interface {
	Fetch(ctx context.Context) []map[string]any
}

// Upserter reconciles one canonical warning against durable storage and
// returns the stored row.
type Upserter interface {
	UpsertWarning(ctx context.Context, warning domain.Warning) (stored domain.Warning, created bool, err error)
}

// Publisher forwards reconciled warnings to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, warning domain.Warning) error
}

// Result summarizes one sync pass.
type Result struct {
	Fetched  int
	Inserted int
	Updated  int
	Failed   int
}

// Sync orchestrates the fetch-normalize-upsert pass over the warning feed.
type Sync struct {
	fetcher   Fetcher
	upserter  Upserter
	publisher Publisher // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Sync with the given stages. Pass a nil publisher to disable
// the downstream sink.
func New(f Fetcher, u Upserter, p Publisher, logger *slog.Logger, metrics *observability.Metrics) *Sync {
	return &Sync{
		fetcher:   f,
		upserter:  u,
		publisher: p,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one sync pass has completed,
// or an error describing why the service is not yet ready.
func (s *Sync) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no sync pass has completed yet")
	}
	return nil
}

// Run executes a single sync pass. Individual record failures are logged
// and counted; only context cancellation stops the pass early. An empty or
// unreachable feed produces a zero Result without error.
func (s *Sync) Run(ctx context.Context) Result {
	start := time.Now()
	s.metrics.SyncRunning.Set(1)
	defer s.metrics.SyncRunning.Set(0)

	raw := s.fetcher.Fetch(ctx)
	s.metrics.WarningsFetched.Add(float64(len(raw)))

	var result Result
	result.Fetched = len(raw)

	for _, record := range raw {
		if ctx.Err() != nil {
			break
		}
		warning := domain.Normalize(record)

		stored, created, err := s.upserter.UpsertWarning(ctx, warning)
		if err != nil {
			s.logger.Error("upsert failed, skipping record",
				"error", err,
				"imgw_id", warning.StableID(),
				"title", warning.Title,
			)
			s.metrics.UpsertErrors.Inc()
			result.Failed++
			continue
		}
		if created {
			s.metrics.WarningsInserted.Inc()
			result.Inserted++
		} else {
			s.metrics.WarningsUpdated.Inc()
			result.Updated++
		}

		s.publish(ctx, stored)
	}

	s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	s.ready.Store(true)

	s.logger.Info("sync pass finished",
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
	return result
}

// RunLoop runs an immediate pass and then one per interval until the
// context is cancelled.
func (s *Sync) RunLoop(ctx context.Context, interval time.Duration) {
	s.logger.Info("sync loop started", "interval", interval)
	s.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync loop stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}

// publish forwards one warning to the sink, if configured. Publish failures
// are absorbed: the warehouse is the source of truth and the sink is
// best-effort.
func (s *Sync) publish(ctx context.Context, warning domain.Warning) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, warning); err != nil {
		s.logger.Warn("publish failed", "error", err, "imgw_id", warning.StableID())
		s.metrics.PublishErrors.Inc()
	}
}
