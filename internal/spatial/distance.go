package spatial

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius
const EarthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance between two points in
// meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Midpoint returns the point halfway along the great circle between two
// points, as lat, lng
func Midpoint(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lon1))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lon2))
	mid := s2.LatLngFromPoint(s2.Interpolate(0.5, p1, p2))
	return mid.Lat.Degrees(), mid.Lng.Degrees()
}
