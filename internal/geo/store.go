package geo

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrDegenerateRing is returned when a boundary ring cannot form a polygon.
var ErrDegenerateRing = errors.New("degenerate ring")

// Region is an administrative county: a TERYT code, a display name and a
// multi-polygon boundary in EPSG:2180 coordinates. Disjoint parts (islands,
// enclaves) and interior holes belong to a single region identity.
type Region struct {
	Code     string
	Name     string
	Boundary orb.MultiPolygon

	bound orb.Bound // cached bounding box for the containment pre-check
}

// Store holds region boundaries and answers point-containment queries.
//
// Reads are lock-free: lookups run against an immutable snapshot that is
// swapped atomically on Load. Concurrent readers never observe a partially
// loaded region set.
type Store struct {
	mu   sync.Mutex // serializes Load calls
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	regions []*Region      // in load order; first match wins on shared edges
	byCode  map[string]int // code -> index into regions
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.snap.Store(&snapshot{byCode: map[string]int{}})
	return s
}

// Load adds or replaces a region by code. The boundary is validated and
// normalized before it becomes visible: every ring must have at least three
// distinct vertices after removing consecutive duplicates, and open rings
// are closed. A validation failure leaves the store unchanged.
//
// Re-loading an existing code keeps the region's original position in the
// scan order, so the shared-edge tie-break stays stable across re-imports.
func (s *Store) Load(code, name string, boundary orb.MultiPolygon) error {
	if code == "" {
		return errors.New("region code must not be empty")
	}
	cleaned, err := normalizeBoundary(boundary)
	if err != nil {
		return fmt.Errorf("region %s: %w", code, err)
	}

	region := &Region{
		Code:     code,
		Name:     name,
		Boundary: cleaned,
		bound:    cleaned.Bound(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap.Load()
	next := &snapshot{
		regions: make([]*Region, len(old.regions)),
		byCode:  make(map[string]int, len(old.byCode)+1),
	}
	copy(next.regions, old.regions)
	for k, v := range old.byCode {
		next.byCode[k] = v
	}

	if i, ok := next.byCode[code]; ok {
		next.regions[i] = region
	} else {
		next.byCode[code] = len(next.regions)
		next.regions = append(next.regions, region)
	}
	s.snap.Store(next)
	return nil
}

// FindContaining returns the first loaded region whose boundary contains the
// point (EPSG:2180 coordinates). Points on a shared edge therefore resolve
// to exactly one region, deterministically. The second return value is false
// when no region contains the point.
func (s *Store) FindContaining(p orb.Point) (*Region, bool) {
	snap := s.snap.Load()
	for _, r := range snap.regions {
		if !r.bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(r.Boundary, p) {
			return r, true
		}
	}
	return nil, false
}

// Region returns a loaded region by code.
func (s *Store) Region(code string) (*Region, bool) {
	snap := s.snap.Load()
	i, ok := snap.byCode[code]
	if !ok {
		return nil, false
	}
	return snap.regions[i], true
}

// Len reports the number of loaded regions.
func (s *Store) Len() int {
	return len(s.snap.Load().regions)
}

// normalizeBoundary validates every ring of the multi-polygon and returns a
// cleaned copy. It never mutates its input.
func normalizeBoundary(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: boundary has no polygons", ErrDegenerateRing)
	}
	out := make(orb.MultiPolygon, 0, len(mp))
	for pi, poly := range mp {
		if len(poly) == 0 {
			return nil, fmt.Errorf("%w: polygon %d has no rings", ErrDegenerateRing, pi)
		}
		cleanPoly := make(orb.Polygon, 0, len(poly))
		for ri, ring := range poly {
			cleaned, err := normalizeRing(ring)
			if err != nil {
				return nil, fmt.Errorf("polygon %d ring %d: %w", pi, ri, err)
			}
			cleanPoly = append(cleanPoly, cleaned)
		}
		out = append(out, cleanPoly)
	}
	return out, nil
}

// normalizeRing removes consecutive duplicate vertices, requires at least
// three distinct ones, and closes the ring when the input is open.
func normalizeRing(ring orb.Ring) (orb.Ring, error) {
	deduped := make(orb.Ring, 0, len(ring))
	for _, pt := range ring {
		if len(deduped) > 0 && deduped[len(deduped)-1] == pt {
			continue
		}
		deduped = append(deduped, pt)
	}
	// A closed input repeats the first vertex; drop it before counting
	// distinct points.
	closed := len(deduped) > 1 && deduped[0] == deduped[len(deduped)-1]
	distinct := len(deduped)
	if closed {
		distinct--
	}
	if distinct < 3 {
		return nil, fmt.Errorf("%w: %d distinct vertices, need at least 3", ErrDegenerateRing, distinct)
	}
	if collinear(deduped[:distinct]) {
		return nil, fmt.Errorf("%w: all vertices are collinear", ErrDegenerateRing)
	}
	if !closed {
		deduped = append(deduped, deduped[0])
	}
	return deduped, nil
}

// collinear reports whether all points lie on a single line.
func collinear(pts orb.Ring) bool {
	if len(pts) < 3 {
		return true
	}
	a, b := pts[0], pts[1]
	for _, c := range pts[2:] {
		cross := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
		if cross != 0 {
			return false
		}
	}
	return true
}
