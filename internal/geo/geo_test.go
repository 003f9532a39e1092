package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		a, b      Coordinates
		want      float64
		tolerance float64
	}{
		{
			name:      "same_point",
			a:         Coordinates{Lat: -34.4278, Lng: 150.8931},
			b:         Coordinates{Lat: -34.4278, Lng: 150.8931},
			want:      0,
			tolerance: 0.001,
		},
		{
			name: "sydney_to_wollongong",
			a:    Coordinates{Lat: -33.8688, Lng: 151.2093},
			b:    Coordinates{Lat: -34.4278, Lng: 150.8931},
			// ~68.9 km by great circle
			want:      68900,
			tolerance: 500,
		},
		{
			name: "one_degree_longitude_at_equator",
			a:    Coordinates{Lat: 0, Lng: 0},
			b:    Coordinates{Lat: 0, Lng: 1},
			// earth circumference / 360
			want:      2 * math.Pi * 6371000 / 360,
			tolerance: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DistanceMeters(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestWithinRadius_BoundaryInclusive(t *testing.T) {
	t.Parallel()

	center := Coordinates{Lat: -34.4278, Lng: 150.8931}

	// Walk due north until we find a point whose distance is a known value,
	// then check the boundary on both sides of it.
	point := Coordinates{Lat: center.Lat + 0.00135, Lng: center.Lng}
	dist := DistanceMeters(center, point)
	require.Greater(t, dist, 100.0)

	assert.True(t, WithinRadius(center, point, dist), "exactly at radius must be within")
	assert.True(t, WithinRadius(center, point, dist+0.01))
	assert.False(t, WithinRadius(center, point, dist-0.01))
}
