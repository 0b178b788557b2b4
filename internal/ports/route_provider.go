package ports

import (
	"context"
	"transport-route-service/internal/domain"
)

// Contract for producing a route over an ordered list of points.
// Implementations fail with domain.ErrProviderUnavailable or domain.ErrNoRouteFound.
type RouteProvider interface {
	// Return geometry, distance (km) and duration (minutes) for the ordered points.
	Route(ctx context.Context, points []domain.GeoPoint) (domain.RouteResult, error)
}

// Optional extension of RouteProvider that supports batched leg lookups.
type MatrixProvider interface {
	RouteProvider
	// Return the directed leg between every pair of points; nil cells have no value.
	Matrix(ctx context.Context, points []domain.GeoPoint) ([][]*domain.Leg, error)
}
