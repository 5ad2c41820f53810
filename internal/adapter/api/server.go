// Package api exposes the public query surface: county lookup by coordinate
// and the warning catalogue. Operational endpoints live in the ops adapter.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
	"github.com/couchcryptid/imgw-warning-proxy/internal/geo"
	"github.com/couchcryptid/imgw-warning-proxy/internal/service"
	"github.com/couchcryptid/imgw-warning-proxy/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Catalogue is the slice of the warehouse the list and detail endpoints need.
type Catalogue interface {
	ListWarnings(ctx context.Context, limit, offset int) ([]domain.Warning, error)
	CountWarnings(ctx context.Context) (int, error)
	GetWarning(ctx context.Context, id string) (domain.Warning, error)
}

// Server serves the public JSON API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the chi router and handlers onto addr.
func NewServer(addr string, warnings *service.Warnings, catalogue Catalogue, logger *slog.Logger) *Server {
	h := &handler{warnings: warnings, catalogue: catalogue, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/teryt", h.getTeryt)
		r.Route("/warnings", func(r chi.Router) {
			r.Get("/", h.listWarnings)
			r.Get("/by_location", h.warningsByLocation)
			r.Get("/{id}", h.getWarning)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type handler struct {
	warnings  *service.Warnings
	catalogue Catalogue
	logger    *slog.Logger
}

// getTeryt maps a coordinate pair to a county code. A point outside every
// boundary is not an error; the code is simply null.
func (h *handler) getTeryt(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	teryt, found, err := h.warnings.Locate(r.Context(), lat, lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := struct {
		Teryt *string `json:"teryt"`
	}{}
	if found {
		resp.Teryt = &teryt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) warningsByLocation(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.warnings.ForLocation(r.Context(), lat, lon)
	switch {
	case errors.Is(err, service.ErrNoRegion):
		writeError(w, http.StatusNotFound, service.ErrNoRegion.Error())
		return
	case errors.Is(err, geo.ErrCoordinateRange):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("location query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) listWarnings(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	total, err := h.catalogue.CountWarnings(ctx)
	if err != nil {
		h.logger.Error("counting warnings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	warnings, err := h.catalogue.ListWarnings(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		h.logger.Error("listing warnings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if warnings == nil {
		warnings = []domain.Warning{}
	}

	writeJSON(w, http.StatusOK, struct {
		Count    int              `json:"count"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
		Results  []domain.Warning `json:"results"`
	}{Count: total, Page: page, PageSize: pageSize, Results: warnings})
}

func (h *handler) getWarning(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	warning, err := h.catalogue.GetWarning(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "warning not found")
		return
	case err != nil:
		h.logger.Error("fetching warning failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, warning)
}

func parseCoords(r *http.Request) (lat, lon float64, err error) {
	lat, err = parseFloatParam(r, "lat")
	if err != nil {
		return 0, 0, err
	}
	lon, err = parseFloatParam(r, "lon")
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New("missing required parameter: " + name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid value for parameter: " + name)
	}
	return v, nil
}

func parsePagination(r *http.Request) (page, pageSize int, err error) {
	page, err = parseIntParam(r, "page", 1)
	if err != nil || page < 1 {
		return 0, 0, errors.New("invalid value for parameter: page")
	}
	pageSize, err = parseIntParam(r, "page_size", defaultPageSize)
	if err != nil || pageSize < 1 {
		return 0, 0, errors.New("invalid value for parameter: page_size")
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, nil
}

func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
