package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection_RoundTrip(t *testing.T) {
	p := NewProjection()

	// Points spread across Poland, plus the corners of its bounding extent.
	points := []struct {
		name     string
		lat, lon float64
	}{
		{"warsaw", 52.2297, 21.0122},
		{"poznan", 52.4064, 16.9252},
		{"krakow", 50.0647, 19.9450},
		{"gdansk", 54.3520, 18.6466},
		{"szczecin", 53.4285, 14.5528},
		{"bieszczady", 49.0800, 22.7200},
		{"northeast corner", 54.9, 23.9},
		{"southwest corner", 49.0, 14.1},
	}

	for _, tc := range points {
		t.Run(tc.name, func(t *testing.T) {
			x, y, err := p.ToNative(tc.lat, tc.lon)
			require.NoError(t, err)

			lat, lon := p.ToGeographic(x, y)
			assert.InDelta(t, tc.lat, lat, 1e-8)
			assert.InDelta(t, tc.lon, lon, 1e-8)

			// And back through the projection: millimeter consistency.
			x2, y2, err := p.ToNative(lat, lon)
			require.NoError(t, err)
			assert.InDelta(t, x, x2, 1e-3)
			assert.InDelta(t, y, y2, 1e-3)
		})
	}
}

func TestProjection_CentralMeridian(t *testing.T) {
	p := NewProjection()

	// Any point on the 19°E central meridian projects to the false easting.
	for _, lat := range []float64{49.5, 52.0, 54.5} {
		x, _, err := p.ToNative(lat, 19.0)
		require.NoError(t, err)
		assert.InDelta(t, 500000.0, x, 1e-6)
	}
}

func TestProjection_KnownMagnitudes(t *testing.T) {
	p := NewProjection()

	// Warsaw lies around easting 637 km / northing 486 km in EPSG:2180.
	// Wide bounds: this guards axis order and offsets, not series precision.
	x, y, err := p.ToNative(52.2297, 21.0122)
	require.NoError(t, err)
	assert.Greater(t, x, 600000.0)
	assert.Less(t, x, 700000.0)
	assert.Greater(t, y, 400000.0)
	assert.Less(t, y, 550000.0)
}

func TestProjection_Monotonic(t *testing.T) {
	p := NewProjection()

	xWest, _, err := p.ToNative(52.0, 18.0)
	require.NoError(t, err)
	xEast, _, err := p.ToNative(52.0, 20.0)
	require.NoError(t, err)
	assert.Greater(t, xEast, xWest, "easting grows eastward")

	_, ySouth, err := p.ToNative(50.0, 19.0)
	require.NoError(t, err)
	_, yNorth, err := p.ToNative(54.0, 19.0)
	require.NoError(t, err)
	assert.Greater(t, yNorth, ySouth, "northing grows northward")
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"valid", 52.4, 16.9, false},
		{"lat north pole", 90, 0, false},
		{"lat south pole", -90, 0, false},
		{"lon antimeridian", 0, 180, false},
		{"lat too large", 90.0001, 0, true},
		{"lat too small", -91, 0, true},
		{"lon too large", 0, 180.5, true},
		{"lon too small", 0, -181, true},
		{"lat NaN", math.NaN(), 0, true},
		{"lon infinite", 0, math.Inf(1), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCoordinates(tc.lat, tc.lon)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrCoordinateRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProjection_ToNativeRejectsOutOfRange(t *testing.T) {
	p := NewProjection()
	_, _, err := p.ToNative(95, 19)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCoordinateRange)
}
