package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	cases := []struct {
		name     string
		lat, lon float64
		region   string
	}{
		{"Grand Central", 40.752998, -73.977056, "Manhattan"},
		{"Fordham", 40.861296, -73.890575, "Bronx"},
		{"Graham Av", 40.714565, -73.944405, "Brooklyn"},
		{"Flushing", 40.7596, -73.83, "Queens"},
		{"St George", 40.6437, -74.0737, "Staten Island"},
	}
	for _, tc := range cases {
		region, ok := idx.Lookup(tc.lat, tc.lon)
		require.True(t, ok, tc.name)
		assert.Equal(t, tc.region, region, tc.name)
	}
}

func TestLookupOutsideAllRegions(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	// Open water south of the harbor.
	_, ok := idx.Lookup(40.3, -73.0)
	assert.False(t, ok)

	// Babylon is commuter territory east of the city.
	_, ok = idx.Lookup(40.700497, -73.324146)
	assert.False(t, ok)
}
