package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
	"github.com/couchcryptid/imgw-warning-proxy/internal/geo"
	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
	"github.com/couchcryptid/imgw-warning-proxy/internal/service"
	"github.com/couchcryptid/imgw-warning-proxy/internal/store"
)

type mockLocator struct {
	teryt string
	found bool
	err   error

	lat, lon float64
}

func (m *mockLocator) Resolve(lat, lon float64) (string, bool, error) {
	m.lat, m.lon = lat, lon
	return m.teryt, m.found, m.err
}

type mockReader struct {
	warnings []domain.Warning
	name     string
	nameErr  error
	queryErr error

	queriedTeryt string
	queriedAsOf  time.Time
}

func (m *mockReader) ActiveWarnings(_ context.Context, teryt string, asOf time.Time) ([]domain.Warning, error) {
	m.queriedTeryt = teryt
	m.queriedAsOf = asOf
	return m.warnings, m.queryErr
}

func (m *mockReader) RegionName(_ context.Context, teryt string) (string, error) {
	return m.name, m.nameErr
}

func newService(locator service.Locator, reader service.WarningReader) *service.Warnings {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewWarnings(locator, reader, logger, observability.NewMetricsForTesting())
}

func TestWarnings_ForLocation(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	locator := &mockLocator{teryt: "0401", found: true}
	reader := &mockReader{
		warnings: []domain.Warning{{ID: "w1", Title: "Silny wiatr"}},
		name:     "aleksandrowski",
	}

	report, err := newService(locator, reader).ForLocation(context.Background(), 52.4, 16.9)
	require.NoError(t, err)

	assert.Equal(t, "0401", report.Teryt)
	assert.Equal(t, "aleksandrowski", report.RegionName)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "Silny wiatr", report.Warnings[0].Title)

	assert.Equal(t, 52.4, locator.lat)
	assert.Equal(t, 16.9, locator.lon)
	assert.Equal(t, "0401", reader.queriedTeryt)
	assert.True(t, reader.queriedAsOf.Equal(now), "query uses the injected clock")
}

func TestWarnings_ForLocation_OutsideCoverage(t *testing.T) {
	svc := newService(&mockLocator{found: false}, &mockReader{})

	_, err := svc.ForLocation(context.Background(), 40.0, 3.0)
	assert.ErrorIs(t, err, service.ErrNoRegion)
}

func TestWarnings_ForLocation_InvalidCoordinates(t *testing.T) {
	locator := &mockLocator{err: geo.ErrCoordinateRange}
	svc := newService(locator, &mockReader{})

	_, err := svc.ForLocation(context.Background(), 120.0, 16.9)
	assert.ErrorIs(t, err, geo.ErrCoordinateRange)
}

func TestWarnings_ActiveFor_UnknownRegionName(t *testing.T) {
	reader := &mockReader{
		warnings: []domain.Warning{{ID: "w1"}},
		nameErr:  store.ErrNotFound,
	}

	report, err := newService(&mockLocator{}, reader).ActiveFor(context.Background(), "0401")
	require.NoError(t, err)
	assert.Empty(t, report.RegionName)
	assert.Len(t, report.Warnings, 1)
}

func TestWarnings_ActiveFor_QueryError(t *testing.T) {
	reader := &mockReader{queryErr: errors.New("database is locked")}

	_, err := newService(&mockLocator{}, reader).ActiveFor(context.Background(), "0401")
	assert.ErrorContains(t, err, "database is locked")
}

func TestWarnings_Locate(t *testing.T) {
	locator := &mockLocator{teryt: "1465", found: true}

	teryt, found, err := newService(locator, &mockReader{}).Locate(context.Background(), 52.23, 21.01)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1465", teryt)
}
