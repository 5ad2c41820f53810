// Package service ties county resolution to the warning warehouse. It is the
// layer the HTTP API talks to; transports never touch geo or store directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
	"github.com/couchcryptid/imgw-warning-proxy/internal/store"
)

// ErrNoRegion is returned when a coordinate pair falls outside every loaded
// county boundary.
var ErrNoRegion = errors.New("no county found for given coordinates")

// Locator maps a geographic point to a county code.
type Locator interface {
	Resolve(lat, lon float64) (string, bool, error)
}

// WarningReader is the slice of the warehouse the service needs.
type WarningReader interface {
	ActiveWarnings(ctx context.Context, teryt string, asOf time.Time) ([]domain.Warning, error)
	RegionName(ctx context.Context, teryt string) (string, error)
}

// LocationReport is the answer to "what is pointed at and what is in effect
// there right now".
type LocationReport struct {
	Teryt      string           `json:"teryt"`
	RegionName string           `json:"region_name,omitempty"`
	Warnings   []domain.Warning `json:"warnings"`
}

// Warnings answers location and county queries against the current warehouse
// contents. The as-of instant always comes from the domain clock so tests can
// pin it.
type Warnings struct {
	locator Locator
	reader  WarningReader
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewWarnings(locator Locator, reader WarningReader, logger *slog.Logger, metrics *observability.Metrics) *Warnings {
	return &Warnings{
		locator: locator,
		reader:  reader,
		logger:  logger.With("component", "warnings_service"),
		metrics: metrics,
	}
}

// Locate resolves a coordinate pair to a county code. found is false when the
// point lies outside every boundary; err is non-nil only for invalid input.
func (s *Warnings) Locate(_ context.Context, lat, lon float64) (teryt string, found bool, err error) {
	teryt, found, err = s.locator.Resolve(lat, lon)
	switch {
	case err != nil:
		s.metrics.ResolveTotal.WithLabelValues("invalid").Inc()
	case !found:
		s.metrics.ResolveTotal.WithLabelValues("none").Inc()
	default:
		s.metrics.ResolveTotal.WithLabelValues("found").Inc()
	}
	return teryt, found, err
}

// ActiveFor lists the warnings in effect for a county at the current instant.
func (s *Warnings) ActiveFor(ctx context.Context, teryt string) (LocationReport, error) {
	asOf := domain.Now()
	warnings, err := s.reader.ActiveWarnings(ctx, teryt, asOf)
	if err != nil {
		return LocationReport{}, fmt.Errorf("querying active warnings for %s: %w", teryt, err)
	}

	report := LocationReport{Teryt: teryt, Warnings: warnings}
	name, err := s.reader.RegionName(ctx, teryt)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// County known to the boundary index but not the dictionary; serve
		// the warnings without a display name.
	case err != nil:
		return LocationReport{}, fmt.Errorf("looking up region name for %s: %w", teryt, err)
	default:
		report.RegionName = name
	}
	return report, nil
}

// ForLocation resolves a point and lists the warnings in effect there.
// Returns ErrNoRegion when the point is outside every loaded boundary.
func (s *Warnings) ForLocation(ctx context.Context, lat, lon float64) (LocationReport, error) {
	teryt, found, err := s.Locate(ctx, lat, lon)
	if err != nil {
		return LocationReport{}, err
	}
	if !found {
		return LocationReport{}, ErrNoRegion
	}

	report, err := s.ActiveFor(ctx, teryt)
	if err != nil {
		return LocationReport{}, err
	}
	s.logger.Debug("location query served",
		"teryt", teryt, "active_warnings", len(report.Warnings))
	return report, nil
}
