package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeGeohashKnownValue(t *testing.T) {
	// Jutland reference point from the geohash documentation
	assert.Equal(t, "u4pruydqqvj", EncodeGeohash(57.64911, 10.40744, 11))
}

func TestDecodeGeohashRoundTrip(t *testing.T) {
	lat, lon := 39.9042, 116.4074
	hash := EncodeGeohash(lat, lon, 9)

	gotLat, gotLon := DecodeGeohash(hash)
	assert.InDelta(t, lat, gotLat, 0.0001)
	assert.InDelta(t, lon, gotLon, 0.0001)

	b := GeohashBounds(hash)
	assert.True(t, b.MinLat <= lat && lat <= b.MaxLat)
	assert.True(t, b.MinLon <= lon && lon <= b.MaxLon)
}

func TestGeohashNeighbors(t *testing.T) {
	hash := EncodeGeohash(48.8566, 2.3522, 7)
	n := GeohashNeighbors(hash)
	require.Len(t, n, 8)
	assert.NotContains(t, n, hash)
	for _, h := range n {
		assert.Len(t, h, 7)
	}
}

func TestGeohashNeighborsAcrossAntimeridian(t *testing.T) {
	hash := EncodeGeohash(0.5, 179.99, 5)
	n := GeohashNeighbors(hash)
	require.Len(t, n, 8)

	var west bool
	for _, h := range n {
		_, lon := DecodeGeohash(h)
		if lon < 0 {
			west = true
		}
	}
	assert.True(t, west)
}

func TestGeohashCellSize(t *testing.T) {
	w, h := GeohashCellSize(7)
	assert.InDelta(t, 153, w, 10)
	assert.InDelta(t, 153, h, 10)
}

func TestHaversineDistance(t *testing.T) {
	// one degree of latitude
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 50)
	assert.Zero(t, HaversineDistance(10, 10, 10, 10))
}

func TestOffset(t *testing.T) {
	origin := Point{Lat: 31.23, Lon: 121.47}
	p := Offset(origin, 300, 400)
	assert.InDelta(t, 500, Distance(origin, p), 1)
}

func TestCentroidAndPath(t *testing.T) {
	origin := Point{Lat: 22.5, Lon: 114.0}
	pts := []Point{origin, Offset(origin, 100, 0), Offset(origin, 100, 100), Offset(origin, 0, 100)}

	c := Centroid(pts)
	assert.InDelta(t, 70.7, Distance(origin, c), 1)
	assert.InDelta(t, 70.7, MaxDistanceFrom(c, pts), 1)
	assert.InDelta(t, 300, PathLength(pts), 1)
	assert.InDelta(t, 100, Displacement(pts), 1)
	assert.Equal(t, Point{}, Centroid(nil))
}

func TestCentroidAntimeridian(t *testing.T) {
	c := Centroid([]Point{{Lat: 0, Lon: 179.9}, {Lat: 0, Lon: -179.9}})
	assert.InDelta(t, 180, abs(c.Lon), 0.001)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
