package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrCoordinateRange is returned when a latitude or longitude falls outside
// the valid geographic range. Callers map it to a client error.
var ErrCoordinateRange = errors.New("coordinate out of range")

// Projection converts between WGS-84 geographic coordinates (degrees) and
// the projected CRS used for stored boundaries: EPSG:2180 (ETRS89 / Poland
// CS92), a transverse Mercator projection on the GRS80 ellipsoid with
// central meridian 19°E, scale 0.9993, false easting 500 000 m and false
// northing −5 300 000 m.
//
// The implementation uses the Krüger series expanded in the third flattening
// to third order, which round-trips well below millimeter level anywhere in
// Poland.
type Projection struct {
	a  float64 // semi-major axis
	k0 float64 // scale on the central meridian
	l0 float64 // central meridian, radians
	fe float64 // false easting
	fn float64 // false northing

	// Precomputed series terms.
	n     float64
	bigA  float64 // rectifying radius
	alpha [3]float64
	beta  [3]float64
	delta [3]float64
}

// NewProjection returns the EPSG:2180 projection.
func NewProjection() *Projection {
	const (
		a = 6378137.0         // GRS80
		f = 1 / 298.257222101 // GRS80 flattening
	)
	p := &Projection{
		a:  a,
		k0: 0.9993,
		l0: 19.0 * math.Pi / 180,
		fe: 500000.0,
		fn: -5300000.0,
	}

	n := f / (2 - f)
	n2 := n * n
	n3 := n2 * n

	p.n = n
	p.bigA = a / (1 + n) * (1 + n2/4 + n2*n2/64)

	p.alpha = [3]float64{
		n/2 - 2*n2/3 + 5*n3/16,
		13*n2/48 - 3*n3/5,
		61 * n3 / 240,
	}
	p.beta = [3]float64{
		n/2 - 2*n2/3 + 37*n3/96,
		n2/48 + n3/15,
		17 * n3 / 480,
	}
	p.delta = [3]float64{
		2*n - 2*n2/3 - 2*n3,
		7*n2/3 - 8*n3/5,
		56 * n3 / 15,
	}
	return p
}

// ToNative projects a WGS-84 coordinate to EPSG:2180. x is the easting and
// y the northing, both in meters. Out-of-range input fails with
// ErrCoordinateRange rather than being clamped.
func (p *Projection) ToNative(lat, lon float64) (x, y float64, err error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}

	phi := lat * math.Pi / 180
	lam := lon*math.Pi/180 - p.l0

	sinPhi := math.Sin(phi)
	e := 2 * math.Sqrt(p.n) / (1 + p.n)
	t := math.Sinh(math.Atanh(sinPhi) - e*math.Atanh(e*sinPhi))

	xiP := math.Atan2(t, math.Cos(lam))
	etaP := math.Asinh(math.Sin(lam) / math.Sqrt(t*t+math.Cos(lam)*math.Cos(lam)))

	xi, eta := xiP, etaP
	for j, a := range p.alpha {
		k := float64(2 * (j + 1))
		xi += a * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += a * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	return p.fe + p.k0*p.bigA*eta, p.fn + p.k0*p.bigA*xi, nil
}

// ToGeographic inverts ToNative, returning WGS-84 degrees.
func (p *Projection) ToGeographic(x, y float64) (lat, lon float64) {
	xi := (y - p.fn) / (p.k0 * p.bigA)
	eta := (x - p.fe) / (p.k0 * p.bigA)

	xiP, etaP := xi, eta
	for j, b := range p.beta {
		k := float64(2 * (j + 1))
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))

	phi := chi
	for j, d := range p.delta {
		k := float64(2 * (j + 1))
		phi += d * math.Sin(k*chi)
	}
	lam := math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	return phi * 180 / math.Pi, (lam + p.l0) * 180 / math.Pi
}

// ValidateCoordinates checks that lat and lon are finite and inside the
// geographic range. It returns an error wrapping ErrCoordinateRange with the
// offending value named.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat %v not in [-90, 90]", ErrCoordinateRange, lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lon %v not in [-180, 180]", ErrCoordinateRange, lon)
	}
	return nil
}
