package geo

import (
	"math"

	"transport-route-service/internal/domain"
)

// Mean Earth radius in km.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in km between a and b.
func Distance(a, b domain.GeoPoint) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	// Rounding can push h slightly outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// PathLength sums Distance over consecutive pairs. Zero or one point is 0 km.
func PathLength(points []domain.GeoPoint) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Average pace assumed for straight-line legs when no road duration is known.
const DefaultFallbackMinutesPerKm = 1.5

// StraightLeg approximates the leg a→b by its great-circle distance at the given pace.
// A non-positive pace uses DefaultFallbackMinutesPerKm.
func StraightLeg(a, b domain.GeoPoint, minutesPerKm float64) domain.Leg {
	if minutesPerKm <= 0 {
		minutesPerKm = DefaultFallbackMinutesPerKm
	}
	km := Distance(a, b)
	return domain.Leg{DistanceKm: km, DurationMinutes: km * minutesPerKm}
}
