package routing

import (
	"context"
	"fmt"
	"sync/atomic"

	"transport-route-service/internal/domain"
)

// MockLeg is a canned two-point route keyed by its endpoints.
type MockLeg struct {
	From, To domain.GeoPoint
	Km       float64
	Minutes  float64
}

// MockRouteProvider answers two-point routes from a fixed table and
// fails with ErrNoRouteFound for anything else. Err, when set, is returned for every call.
type MockRouteProvider struct {
	m     map[string]domain.RouteResult
	Err   error
	calls atomic.Int64
}

func NewMockRouteProvider(legs []MockLeg) *MockRouteProvider {
	m := make(map[string]domain.RouteResult, len(legs))
	for _, l := range legs {
		m[mockKey(l.From, l.To)] = domain.RouteResult{
			Geometry:        []domain.GeoPoint{l.From, l.To},
			DistanceKm:      l.Km,
			DurationMinutes: l.Minutes,
		}
	}
	return &MockRouteProvider{m: m}
}

func (p *MockRouteProvider) Route(_ context.Context, points []domain.GeoPoint) (domain.RouteResult, error) {
	p.calls.Add(1)

	if p.Err != nil {
		return domain.RouteResult{}, p.Err
	}

	if len(points) != 2 {
		return domain.RouteResult{}, fmt.Errorf("%w: mock answers 2-point routes only", domain.ErrNoRouteFound)
	}

	r, ok := p.m[mockKey(points[0], points[1])]
	if !ok {
		return domain.RouteResult{}, fmt.Errorf("%w: missing pair %s -> %s", domain.ErrNoRouteFound, points[0], points[1])
	}

	return r, nil
}

// Calls reports how many times Route was invoked.
func (p *MockRouteProvider) Calls() int { return int(p.calls.Load()) }

func mockKey(from, to domain.GeoPoint) string {
	return from.String() + "|" + to.String()
}
