package domain

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distance.
const EarthRadiusMeters = 6371000.0

// DefaultGeofenceRadiusMeters is the maximum distance between the reported
// site and the resolving officer.
const DefaultGeofenceRadiusMeters = 200.0

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b Coordinates) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// WithinGeofence reports whether b lies within radius meters of a, along with
// the measured distance. A distance equal to the radius passes.
func WithinGeofence(a, b Coordinates, radius float64) (bool, float64) {
	d := DistanceMeters(a, b)
	return d <= radius, d
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
