package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies inside the coordinate ranges
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Centroid calculates the geographic centroid of a set of points.
// Points are averaged on the unit sphere so clusters across the antimeridian stay correct.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var x, y, z float64
	for _, p := range points {
		v := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
		x += v.X
		y += v.Y
		z += v.Z
	}
	n := float64(len(points))
	c := s2.LatLngFromPoint(s2.PointFromCoords(x/n, y/n, z/n))

	return Point{Lat: c.Lat.Degrees(), Lon: c.Lng.Degrees()}
}

// MaxDistanceFrom returns the largest distance in meters from center to any point
func MaxDistanceFrom(center Point, points []Point) float64 {
	var maxDist float64
	for _, p := range points {
		if d := Distance(center, p); d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}

// PathLength calculates the total length of a path (sequence of points) in meters
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(points); i++ {
		totalDist += Distance(points[i-1], points[i])
	}

	return totalDist
}

// Displacement is the straight-line distance between the first and last point
func Displacement(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	return Distance(points[0], points[len(points)-1])
}

func cosLat(ll s2.LatLng) float64 {
	c := math.Cos(ll.Lat.Radians())
	if c < 1e-9 {
		return 1e-9
	}
	return c
}
