package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance returns the great-circle distance between two points in meters
func Distance(a, b Point) float64 {
	return HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Offset moves a point by north/east meters. Used to build synthetic tracks.
func Offset(p Point, northM, eastM float64) Point {
	ll := s2.LatLngFromDegrees(p.Lat, p.Lon)
	dLat := northM / EarthRadiusMeters
	dLon := eastM / (EarthRadiusMeters * cosLat(ll))
	return Point{
		Lat: p.Lat + dLat*180/math.Pi,
		Lon: p.Lon + dLon*180/math.Pi,
	}
}
