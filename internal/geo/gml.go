package geo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ParseGML extracts polygon boundaries from a GML 3.2 document, as published
// by the national boundary dataset. Every gml:Polygon element contributes one
// polygon: the gml:exterior ring plus any gml:interior hole rings. Coordinate
// pairs in gml:posList are EPSG:2180 x y values.
//
// Files carrying several gml:Polygon elements for one feature (islands,
// enclaves) yield a multi-polygon; callers treat it as a single region.
func ParseGML(r io.Reader) (orb.MultiPolygon, error) {
	dec := xml.NewDecoder(r)
	var mp orb.MultiPolygon

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse gml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Polygon" {
			continue
		}

		var raw gmlPolygon
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return nil, fmt.Errorf("parse gml polygon: %w", err)
		}
		poly, err := raw.toPolygon()
		if err != nil {
			return nil, err
		}
		mp = append(mp, poly)
	}

	if len(mp) == 0 {
		return nil, errors.New("parse gml: no polygon geometry found")
	}
	return mp, nil
}

type gmlPolygon struct {
	Exterior struct {
		PosList string `xml:"LinearRing>posList"`
	} `xml:"exterior"`
	Interiors []struct {
		PosList string `xml:"LinearRing>posList"`
	} `xml:"interior"`
}

func (g gmlPolygon) toPolygon() (orb.Polygon, error) {
	exterior, err := parsePosList(g.Exterior.PosList)
	if err != nil {
		return nil, fmt.Errorf("exterior ring: %w", err)
	}
	poly := orb.Polygon{exterior}
	for i, interior := range g.Interiors {
		hole, err := parsePosList(interior.PosList)
		if err != nil {
			return nil, fmt.Errorf("interior ring %d: %w", i, err)
		}
		poly = append(poly, hole)
	}
	return poly, nil
}

// parsePosList splits a whitespace-separated coordinate list into points.
// The list must hold an even number of values.
func parsePosList(text string) (orb.Ring, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errors.New("empty posList")
	}
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("posList has %d values, expected an even count", len(fields))
	}

	ring := make(orb.Ring, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", fields[i], err)
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", fields[i+1], err)
		}
		ring = append(ring, orb.Point{x, y})
	}
	return ring, nil
}
