// Imports a county boundary from a GML file into the warehouse regions
// table. Boundary coordinates are expected in the native planar CRS, the
// same frame the resolver projects query points into.
//
// Usage:
//
//	importer -teryt 0401 -name aleksandrowski [-db ./data/warnings.db] [-dry-run] boundary.gml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/imgw-warning-proxy/internal/config"
	"github.com/couchcryptid/imgw-warning-proxy/internal/geo"
	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
	"github.com/couchcryptid/imgw-warning-proxy/internal/store"
)

func main() {
	_ = godotenv.Load()

	var (
		teryt  = flag.String("teryt", "", "county TERYT code, e.g. 0401 (required)")
		name   = flag.String("name", "", "county name (required)")
		dbPath = flag.String("db", "", "warehouse path (defaults to DB_PATH)")
		dryRun = flag.Bool("dry-run", false, "parse and validate without writing")
	)
	flag.Parse()

	if *teryt == "" || *name == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: importer -teryt CODE -name NAME [-db PATH] [-dry-run] FILE.gml")
		os.Exit(2)
	}
	gmlPath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	if *dbPath == "" {
		*dbPath = cfg.DBPath
	}

	f, err := os.Open(gmlPath)
	if err != nil {
		logger.Error("failed to open GML file", "path", gmlPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	boundary, err := geo.ParseGML(f)
	if err != nil {
		logger.Error("failed to parse GML", "path", gmlPath, "error", err)
		os.Exit(1)
	}

	// Run the boundary through the spatial index so a degenerate geometry
	// fails here instead of at server startup.
	probe := geo.NewStore()
	if err := probe.Load(*teryt, *name, boundary); err != nil {
		logger.Error("boundary failed validation", "teryt", *teryt, "error", err)
		os.Exit(1)
	}

	if *dryRun {
		logger.Info("dry run, boundary is valid",
			"teryt", *teryt, "name", *name, "polygons", len(boundary))
		return
	}

	encoded, err := geo.EncodeBoundary(boundary)
	if err != nil {
		logger.Error("failed to encode boundary", "error", err)
		os.Exit(1)
	}

	warehouse, err := store.Open(*dbPath)
	if err != nil {
		logger.Error("failed to open warehouse", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer warehouse.Close()

	region := store.StoredRegion{Code: *teryt, Name: *name, Boundary: encoded}
	if err := warehouse.SaveRegion(context.Background(), region); err != nil {
		logger.Error("failed to save region", "teryt", *teryt, "error", err)
		os.Exit(1)
	}

	logger.Info("county imported",
		"teryt", *teryt, "name", *name, "polygons", len(boundary))
}
