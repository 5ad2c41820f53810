package geo

import "github.com/paulmach/orb"

// Resolver maps a WGS-84 coordinate to the TERYT code of the county that
// contains it. It is read-only with respect to the Store and safe for
// concurrent use.
type Resolver struct {
	projection *Projection
	store      *Store
}

// NewResolver creates a Resolver over the given projection and store.
func NewResolver(projection *Projection, store *Store) *Resolver {
	return &Resolver{projection: projection, store: store}
}

// Resolve returns the TERYT code of the county containing (lat, lon).
// A point outside every loaded boundary is not an error: Resolve returns
// ("", false, nil). Invalid coordinates fail with ErrCoordinateRange.
func (r *Resolver) Resolve(lat, lon float64) (string, bool, error) {
	x, y, err := r.projection.ToNative(lat, lon)
	if err != nil {
		return "", false, err
	}
	region, ok := r.store.FindContaining(orb.Point{x, y})
	if !ok {
		return "", false, nil
	}
	return region.Code, true, nil
}
