package services

import (
	"context"
	"errors"
	"fmt"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/platform/obs"
	"transport-route-service/internal/ports"
)

// Metric selects which leg value the optimizer minimizes.
type Metric string

const (
	MetricDistance Metric = "distance"
	MetricDuration Metric = "duration"
)

// SequenceOptimizer reorders a mission's destinations with the nearest-neighbour
// heuristic and resolves the route for the chosen order.
//
// The order is a reasonable heuristic answer, not a guaranteed optimum.
type SequenceOptimizer struct {
	Resolver *RouteResolver
	// Costs supplies pairwise legs. A MatrixProvider is asked once for the whole matrix.
	// Nil means straight-line costs.
	Costs ports.RouteProvider
	// Metric defaults to MetricDistance.
	Metric Metric
	// Parallelism bounds concurrent pair requests. Zero means 5.
	Parallelism int
	// TwoOpt runs a 2-opt improvement pass after the greedy walk.
	TwoOpt bool
}

// OptimizeResult holds destinations renumbered 1..N in visiting order, the resolved
// route for that order, and the leg matrix over {source} ∪ input destinations.
type OptimizeResult struct {
	Destinations []domain.Waypoint
	Route        domain.RouteResult
	Matrix       [][]domain.Leg
}

// Optimize computes a visiting order for destinations starting at source.
// Input sequence numbers are ignored; ties keep the input order.
func (o *SequenceOptimizer) Optimize(
	ctx context.Context,
	source domain.Waypoint,
	destinations []domain.Waypoint,
) (_ OptimizeResult, err error) {
	defer obs.Time(ctx, "route.Optimize")(&err)

	if o.Resolver == nil {
		return OptimizeResult{}, errors.New("optimize: resolver is nil")
	}

	if err := validateOptimizeInput(source, destinations); err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize: %w", err)
	}

	if len(destinations) == 0 {
		return OptimizeResult{
			Destinations: []domain.Waypoint{},
			Route:        domain.ZeroRoute(),
		}, nil
	}

	points := make([]domain.GeoPoint, 0, 1+len(destinations))
	points = append(points, source.Point)
	for _, d := range destinations {
		points = append(points, d.Point)
	}

	var (
		order  []int
		matrix [][]domain.Leg
	)

	if len(destinations) == 1 {
		order = []int{0}
	} else {
		matrix, err = BuildCostMatrix(ctx, points, o.Costs, o.Parallelism)
		if err != nil {
			return OptimizeResult{}, fmt.Errorf("optimize: build cost matrix: %w", err)
		}

		cost := o.costValues(matrix)
		order = NearestNeighborOrder(cost)
		if o.TwoOpt {
			order = TwoOpt(order, cost)
		}
	}

	ordered := make([]domain.Waypoint, len(order))
	for i, idx := range order {
		ordered[i] = destinations[idx]
	}
	ordered = domain.Resequence(ordered)

	route, err := o.Resolver.Resolve(ctx, domain.NewRouteRequest(domain.NewSource(source.Point), ordered))
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize: resolve route: %w", err)
	}

	return OptimizeResult{
		Destinations: ordered,
		Route:        route,
		Matrix:       matrix,
	}, nil
}

// OptimizeMission optimizes m in place and returns the result.
func (o *SequenceOptimizer) OptimizeMission(ctx context.Context, m *domain.Mission) (OptimizeResult, error) {
	if m == nil {
		return OptimizeResult{}, errors.New("optimize mission: mission is nil")
	}

	res, err := o.Optimize(ctx, m.Source, m.Destinations)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize mission %q: %w", m.Name, err)
	}

	if err := m.ApplyOrder(res.Destinations); err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize mission %q: %w", m.Name, err)
	}
	return res, nil
}

func (o *SequenceOptimizer) costValues(matrix [][]domain.Leg) [][]float64 {
	cost := make([][]float64, len(matrix))
	for i, row := range matrix {
		cost[i] = make([]float64, len(row))
		for j, leg := range row {
			if o.Metric == MetricDuration {
				cost[i][j] = leg.DurationMinutes
			} else {
				cost[i][j] = leg.DistanceKm
			}
		}
	}
	return cost
}

func validateOptimizeInput(source domain.Waypoint, destinations []domain.Waypoint) error {
	if source.Role != domain.RoleSource {
		return fmt.Errorf("%w: source waypoint has role %q", domain.ErrInvalidRequest, source.Role)
	}
	if err := source.Point.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	for i, d := range destinations {
		if d.Role != domain.RoleDestination {
			return fmt.Errorf("%w: destination %d has role %q", domain.ErrInvalidRequest, i, d.Role)
		}
		if err := d.Point.Validate(); err != nil {
			return fmt.Errorf("destination %d: %w", i, err)
		}
	}
	return nil
}

// ParseMetric accepts "distance" or "duration"; empty means distance.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricDistance:
		return MetricDistance, nil
	case MetricDuration:
		return MetricDuration, nil
	default:
		return "", fmt.Errorf("%w: unknown optimizer metric %q", domain.ErrInvalidRequest, s)
	}
}
