// Package geo provides great-circle distance math for geofenced check-ins.
// Both functions are pure and safe for concurrent use.
package geo

import (
	"math"

	"campusattend/internal/domain"
)

// EarthRadiusM is the mean Earth radius in meters. Event radii are tens to
// hundreds of meters, where the spherical approximation error is negligible
// relative to GPS accuracy, so no ellipsoidal model is used.
const EarthRadiusM = 6371000.0

// DistanceMeters computes the haversine distance between two coordinates.
// Inputs must be valid coordinates (see domain.Coordinate.Validate); the
// function assumes in-range values. The result is symmetric in its arguments
// and exactly 0 when a == b.
func DistanceMeters(a, b domain.Coordinate) float64 {
	phi1 := radians(a.Latitude)
	phi2 := radians(b.Latitude)
	dPhi := radians(b.Latitude - a.Latitude)
	dLambda := radians(b.Longitude - a.Longitude)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Floating-point rounding can push h marginally outside [0, 1] for
	// near-antipodal points; clamp before the inverse step.
	if h < 0 {
		h = 0
	} else if h > 1 {
		h = 1
	}

	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether the user coordinate lies within radiusM meters
// of center. The boundary is inclusive: a point at exactly radiusM is inside.
// A non-positive radius is a configuration error caught by event validation,
// not here.
func WithinRadius(user, center domain.Coordinate, radiusM float64) bool {
	return DistanceMeters(user, center) <= radiusM
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
