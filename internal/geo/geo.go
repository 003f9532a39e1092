// Package geo provides great-circle distance math for geofence checks.
package geo

import "math"

const earthRadiusM = 6371000.0

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64
	Lng float64
}

// DistanceMeters returns the haversine distance between two points.
func DistanceMeters(a, b Coordinates) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// WithinRadius reports whether b lies within radiusM meters of a.
// The boundary is inclusive: a point at exactly radiusM is within.
func WithinRadius(a, b Coordinates, radiusM float64) bool {
	return DistanceMeters(a, b) <= radiusM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
