package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryRoundTrip(t *testing.T) {
	boundary := orb.MultiPolygon{{square(0, 0, 100, 100)}}

	data, err := EncodeBoundary(boundary)
	require.NoError(t, err)

	decoded, err := DecodeBoundary(data)
	require.NoError(t, err)
	assert.Equal(t, boundary, decoded)
}

func TestDecodeBoundary_WrapsBarePolygon(t *testing.T) {
	data := []byte(`{"type":"Polygon","coordinates":[[[0,0],[100,0],[100,100],[0,100],[0,0]]]}`)

	decoded, err := DecodeBoundary(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
}

func TestDecodeBoundary_RejectsOtherGeometries(t *testing.T) {
	_, err := DecodeBoundary([]byte(`{"type":"Point","coordinates":[1,2]}`))
	assert.Error(t, err)

	_, err = DecodeBoundary([]byte(`not json`))
	assert.Error(t, err)
}
