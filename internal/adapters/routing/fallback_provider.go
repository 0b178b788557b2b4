package routing

import (
	"context"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
)

// FallbackProvider approximates a route by straight lines between the waypoints.
// Distance is the haversine path length; duration assumes a constant pace.
type FallbackProvider struct {
	MinutesPerKm float64
}

// NewFallbackProvider returns a provider at the given pace. A non-positive pace
// uses geo.DefaultFallbackMinutesPerKm.
func NewFallbackProvider(minutesPerKm float64) *FallbackProvider {
	if minutesPerKm <= 0 {
		minutesPerKm = geo.DefaultFallbackMinutesPerKm
	}
	return &FallbackProvider{MinutesPerKm: minutesPerKm}
}

// Route never fails for two or more points.
func (f *FallbackProvider) Route(_ context.Context, points []domain.GeoPoint) (domain.RouteResult, error) {
	if err := requireRoutable(points); err != nil {
		return domain.RouteResult{}, err
	}

	geometry := make([]domain.GeoPoint, len(points))
	copy(geometry, points)

	km := geo.PathLength(points)
	return domain.RouteResult{
		Geometry:        geometry,
		DistanceKm:      km,
		DurationMinutes: km * f.pace(),
		IsFallback:      true,
	}, nil
}

// Matrix returns straight-line legs for every ordered pair.
func (f *FallbackProvider) Matrix(_ context.Context, points []domain.GeoPoint) ([][]*domain.Leg, error) {
	out := make([][]*domain.Leg, len(points))
	for i := range points {
		out[i] = make([]*domain.Leg, len(points))
		for j := range points {
			leg := geo.StraightLeg(points[i], points[j], f.pace())
			out[i][j] = &leg
		}
	}
	return out, nil
}

func (f *FallbackProvider) pace() float64 {
	if f.MinutesPerKm <= 0 {
		return geo.DefaultFallbackMinutesPerKm
	}
	return f.MinutesPerKm
}
