package geo

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EncodeBoundary serializes a boundary as a GeoJSON geometry for storage.
func EncodeBoundary(boundary orb.MultiPolygon) ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(boundary))
}

// DecodeBoundary parses a stored GeoJSON geometry. A bare Polygon is accepted
// and wrapped.
func DecodeBoundary(data []byte) (orb.MultiPolygon, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parsing boundary geometry: %w", err)
	}
	switch geom := g.Geometry().(type) {
	case orb.MultiPolygon:
		return geom, nil
	case orb.Polygon:
		return orb.MultiPolygon{geom}, nil
	default:
		return nil, fmt.Errorf("unsupported boundary geometry type %q", g.Type)
	}
}
