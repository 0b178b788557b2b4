package domain

import (
	"fmt"
	"time"
)

// Ordered list of waypoints, source first, destinations in visiting order.
type RouteRequest struct {
	Waypoints []Waypoint
}

// NewRouteRequest builds a request from a source and destinations already in visiting order.
func NewRouteRequest(source Waypoint, destinations []Waypoint) RouteRequest {
	wps := make([]Waypoint, 0, 1+len(destinations))
	wps = append(wps, source)
	wps = append(wps, destinations...)
	return RouteRequest{Waypoints: wps}
}

// Validate enforces the request shape: at least one waypoint, valid coordinates,
// a leading source and destinations numbered by their 1-based position.
func (r RouteRequest) Validate() error {
	if len(r.Waypoints) == 0 {
		return fmt.Errorf("%w: at least one waypoint is required", ErrInvalidRequest)
	}

	for i, wp := range r.Waypoints {
		if err := wp.Point.Validate(); err != nil {
			return fmt.Errorf("waypoint %d: %w", i, err)
		}

		if i == 0 {
			if wp.Role != RoleSource {
				return fmt.Errorf("%w: first waypoint must be the source, got %q", ErrInvalidRequest, wp.Role)
			}
			continue
		}

		if wp.Role != RoleDestination {
			return fmt.Errorf("%w: waypoint %d has role %q, want %q", ErrInvalidRequest, i, wp.Role, RoleDestination)
		}
		if wp.Sequence != i {
			return fmt.Errorf("%w: waypoint %d has sequence %d, want %d", ErrInvalidRequest, i, wp.Sequence, i)
		}
	}

	return nil
}

// Points returns the coordinates of the request in order.
func (r RouteRequest) Points() []GeoPoint {
	out := make([]GeoPoint, len(r.Waypoints))
	for i, wp := range r.Waypoints {
		out[i] = wp.Point
	}
	return out
}

// Degenerate requests (a single point) have a zero route and never reach cache or provider.
func (r RouteRequest) IsDegenerate() bool { return len(r.Waypoints) <= 1 }

// Route geometry plus aggregate metrics. IsFallback marks a straight-line approximation.
type RouteResult struct {
	Geometry        []GeoPoint
	DistanceKm      float64
	DurationMinutes float64
	IsFallback      bool
}

// ZeroRoute is the result for a request with a single point.
func ZeroRoute() RouteResult {
	return RouteResult{Geometry: []GeoPoint{}}
}

// Distance and duration of one directed leg, normalized to km and minutes.
type Leg struct {
	DistanceKm      float64
	DurationMinutes float64
}

// A cached route keyed by its waypoint fingerprint.
// LastUsed makes age-based retention possible outside the cache.
type CacheEntry struct {
	Key       string
	Result    RouteResult
	UseCount  int
	CreatedAt time.Time
	LastUsed  time.Time
}

// Aggregate cache statistics.
type CacheStats struct {
	TotalEntries    int
	NetworkEntries  int
	FallbackEntries int
	TotalUsage      int
}

// HitPotential is the number of uses served beyond the first computation of each entry.
func (s CacheStats) HitPotential() int {
	if s.TotalUsage > s.TotalEntries {
		return s.TotalUsage - s.TotalEntries
	}
	return 0
}

// PreferredResult applies the cache replacement rule for a key that already holds stored:
// a fallback never displaces a network route; in every other case incoming wins.
func PreferredResult(stored, incoming RouteResult) RouteResult {
	if !stored.IsFallback && incoming.IsFallback {
		return stored
	}
	return incoming
}
