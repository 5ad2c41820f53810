package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/imgw-warning-proxy/internal/adapter/api"
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
}

func (m *mockLocator) Resolve(_, _ float64) (string, bool, error) {
	return m.teryt, m.found, m.err
}

type mockReader struct {
	warnings []domain.Warning
	name     string
}

func (m *mockReader) ActiveWarnings(context.Context, string, time.Time) ([]domain.Warning, error) {
	return m.warnings, nil
}

func (m *mockReader) RegionName(context.Context, string) (string, error) {
	if m.name == "" {
		return "", store.ErrNotFound
	}
	return m.name, nil
}

type mockCatalogue struct {
	warnings []domain.Warning
	total    int

	limit, offset int
}

func (m *mockCatalogue) ListWarnings(_ context.Context, limit, offset int) ([]domain.Warning, error) {
	m.limit, m.offset = limit, offset
	return m.warnings, nil
}

func (m *mockCatalogue) CountWarnings(context.Context) (int, error) {
	return m.total, nil
}

func (m *mockCatalogue) GetWarning(_ context.Context, id string) (domain.Warning, error) {
	for _, w := range m.warnings {
		if w.ID == id {
			return w, nil
		}
	}
	return domain.Warning{}, store.ErrNotFound
}

func newTestServer(locator *mockLocator, reader *mockReader, catalogue *mockCatalogue) *api.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewWarnings(locator, reader, logger, observability.NewMetricsForTesting())
	return api.NewServer(":0", svc, catalogue, logger)
}

func get(t *testing.T, srv *api.Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestGetTeryt(t *testing.T) {
	srv := newTestServer(&mockLocator{teryt: "0401", found: true}, &mockReader{}, &mockCatalogue{})

	rec := get(t, srv, "/api/teryt?lat=52.4&lon=16.9")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"teryt":"0401"}`, rec.Body.String())
}

func TestGetTeryt_OutsideCoverage(t *testing.T) {
	srv := newTestServer(&mockLocator{}, &mockReader{}, &mockCatalogue{})

	rec := get(t, srv, "/api/teryt?lat=48.85&lon=2.35")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"teryt":null}`, rec.Body.String())
}

func TestGetTeryt_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		locator *mockLocator
		url     string
	}{
		{"missing lat", &mockLocator{}, "/api/teryt?lon=16.9"},
		{"missing lon", &mockLocator{}, "/api/teryt?lat=52.4"},
		{"non numeric", &mockLocator{}, "/api/teryt?lat=abc&lon=16.9"},
		{"out of range", &mockLocator{err: geo.ErrCoordinateRange}, "/api/teryt?lat=120&lon=16.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.locator, &mockReader{}, &mockCatalogue{})

			rec := get(t, srv, tt.url)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestWarningsByLocation(t *testing.T) {
	locator := &mockLocator{teryt: "0401", found: true}
	reader := &mockReader{
		warnings: []domain.Warning{{ID: "w1", Title: "Silny wiatr", Areas: []string{"0401"}}},
		name:     "aleksandrowski",
	}
	srv := newTestServer(locator, reader, &mockCatalogue{})

	rec := get(t, srv, "/api/warnings/by_location?lat=52.4&lon=16.9")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Teryt      string           `json:"teryt"`
		RegionName string           `json:"region_name"`
		Warnings   []domain.Warning `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0401", body.Teryt)
	assert.Equal(t, "aleksandrowski", body.RegionName)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, "Silny wiatr", body.Warnings[0].Title)
}

func TestWarningsByLocation_NoRegionIs404(t *testing.T) {
	srv := newTestServer(&mockLocator{}, &mockReader{}, &mockCatalogue{})

	rec := get(t, srv, "/api/warnings/by_location?lat=48.85&lon=2.35")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no county found for given coordinates"}`, rec.Body.String())
}

func TestListWarnings_Pagination(t *testing.T) {
	catalogue := &mockCatalogue{
		warnings: []domain.Warning{{ID: "w1"}, {ID: "w2"}},
		total:    12,
	}
	srv := newTestServer(&mockLocator{}, &mockReader{}, catalogue)

	rec := get(t, srv, "/api/warnings?page=3&page_size=2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, catalogue.limit)
	assert.Equal(t, 4, catalogue.offset)

	var body struct {
		Count    int              `json:"count"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
		Results  []domain.Warning `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 12, body.Count)
	assert.Equal(t, 3, body.Page)
	assert.Equal(t, 2, body.PageSize)
	assert.Len(t, body.Results, 2)
}

func TestListWarnings_EmptyIsJSONArray(t *testing.T) {
	srv := newTestServer(&mockLocator{}, &mockReader{}, &mockCatalogue{})

	rec := get(t, srv, "/api/warnings")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestListWarnings_InvalidPage(t *testing.T) {
	srv := newTestServer(&mockLocator{}, &mockReader{}, &mockCatalogue{})

	for _, url := range []string{
		"/api/warnings?page=0",
		"/api/warnings?page=abc",
		"/api/warnings?page_size=-1",
	} {
		rec := get(t, srv, url)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestListWarnings_PageSizeClamped(t *testing.T) {
	catalogue := &mockCatalogue{}
	srv := newTestServer(&mockLocator{}, &mockReader{}, catalogue)

	rec := get(t, srv, "/api/warnings?page_size=10000")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, catalogue.limit)
}

func TestGetWarning(t *testing.T) {
	catalogue := &mockCatalogue{warnings: []domain.Warning{{ID: "w1", Title: "Burze"}}}
	srv := newTestServer(&mockLocator{}, &mockReader{}, catalogue)

	rec := get(t, srv, "/api/warnings/w1")

	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.Warning
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Burze", body.Title)
}

func TestGetWarning_NotFound(t *testing.T) {
	srv := newTestServer(&mockLocator{}, &mockReader{}, &mockCatalogue{})

	rec := get(t, srv, "/api/warnings/missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"warning not found"}`, rec.Body.String())
}
