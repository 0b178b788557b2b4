package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-route-service/internal/adapters/cache"
	"transport-route-service/internal/adapters/routing"
	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
)

var (
	origin = domain.GeoPoint{Lat: 0, Lon: 0}
	north  = domain.GeoPoint{Lat: 0.0899, Lon: 0}
	south  = domain.GeoPoint{Lat: -0.0899, Lon: 0}
)

func fallbackResolver() *RouteResolver {
	return NewRouteResolver(cache.NewMemoryRouteCache(), nil, routing.NewFallbackProvider(0))
}

func destinationsOf(points ...domain.GeoPoint) []domain.Waypoint {
	out := make([]domain.Waypoint, len(points))
	for i, p := range points {
		out[i] = domain.NewDestination(p, i+1)
	}
	return out
}

func pointsOf(wps []domain.Waypoint) []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(wps))
	for i, w := range wps {
		out[i] = w.Point
	}
	return out
}

func TestOptimize_TieKeepsInputOrder(t *testing.T) {
	// Both destinations are exactly 10 km from the source.
	p := routing.NewMockRouteProvider([]routing.MockLeg{
		{From: origin, To: north, Km: 10, Minutes: 15},
		{From: origin, To: south, Km: 10, Minutes: 15},
		{From: north, To: south, Km: 20, Minutes: 30},
		{From: south, To: north, Km: 20, Minutes: 30},
		{From: north, To: origin, Km: 10, Minutes: 15},
		{From: south, To: origin, Km: 10, Minutes: 15},
	})

	for _, tc := range []struct {
		name  string
		dests []domain.GeoPoint
		want  []domain.GeoPoint
	}{
		{name: "north first", dests: []domain.GeoPoint{north, south}, want: []domain.GeoPoint{north, south}},
		{name: "south first", dests: []domain.GeoPoint{south, north}, want: []domain.GeoPoint{south, north}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := &SequenceOptimizer{Resolver: fallbackResolver(), Costs: p}

			res, err := o.Optimize(context.Background(), domain.NewSource(origin), destinationsOf(tc.dests...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, pointsOf(res.Destinations))
			assert.Equal(t, 1, res.Destinations[0].Sequence)
			assert.Equal(t, 2, res.Destinations[1].Sequence)
		})
	}
}

func TestOptimize_PicksNearestFirst(t *testing.T) {
	o := &SequenceOptimizer{Resolver: fallbackResolver()}

	// Input order is far-to-near; the walk must visit Lyon before Marseille from Paris.
	res, err := o.Optimize(context.Background(), domain.NewSource(paris), destinationsOf(marseille, lyon))
	require.NoError(t, err)

	assert.Equal(t, []domain.GeoPoint{lyon, marseille}, pointsOf(res.Destinations))
	assert.Equal(t, []domain.GeoPoint{paris, lyon, marseille}, res.Route.Geometry)
	require.Len(t, res.Matrix, 3)
	assert.InDelta(t, geo.Distance(paris, lyon), res.Matrix[0][2].DistanceKm, 1e-9)
}

func TestOptimize_AllProvidersFailStillOrders(t *testing.T) {
	var calls atomic.Int32
	network := failingProvider(&calls)
	resolver := NewRouteResolver(cache.NewMemoryRouteCache(), network, routing.NewFallbackProvider(0))
	o := &SequenceOptimizer{Resolver: resolver, Costs: network, Parallelism: 2}

	res, err := o.Optimize(context.Background(), domain.NewSource(paris), destinationsOf(marseille, lyon))
	require.NoError(t, err)

	assert.Equal(t, []domain.GeoPoint{lyon, marseille}, pointsOf(res.Destinations))
	assert.True(t, res.Route.IsFallback)
	// 6 ordered pairs for the matrix plus one resolver attempt.
	assert.Equal(t, int32(7), calls.Load())
}

type failingMatrix struct {
	providerFunc
}

func (failingMatrix) Matrix(context.Context, []domain.GeoPoint) ([][]*domain.Leg, error) {
	return nil, errors.New("matrix down")
}

func TestOptimize_MatrixFailureUsesHaversine(t *testing.T) {
	o := &SequenceOptimizer{
		Resolver: fallbackResolver(),
		Costs:    failingMatrix{providerFunc: failingProvider(nil)},
	}

	res, err := o.Optimize(context.Background(), domain.NewSource(paris), destinationsOf(marseille, lyon))
	require.NoError(t, err)
	assert.Equal(t, []domain.GeoPoint{lyon, marseille}, pointsOf(res.Destinations))
}

func TestOptimize_DegenerateInputs(t *testing.T) {
	c := newCountingCache()
	resolver := NewRouteResolver(c, nil, routing.NewFallbackProvider(0))
	o := &SequenceOptimizer{Resolver: resolver}
	ctx := context.Background()

	empty, err := o.Optimize(ctx, domain.NewSource(paris), nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Destinations)
	assert.Zero(t, c.lookups.Load())
	assert.Zero(t, c.stores.Load())

	single, err := o.Optimize(ctx, domain.NewSource(paris), destinationsOf(lyon))
	require.NoError(t, err)
	require.Len(t, single.Destinations, 1)
	assert.Equal(t, 1, single.Destinations[0].Sequence)
	assert.Nil(t, single.Matrix)
	assert.Equal(t, int32(1), c.lookups.Load())
	assert.Equal(t, int32(1), c.stores.Load())
}

func TestOptimize_RejectsInvalidInput(t *testing.T) {
	o := &SequenceOptimizer{Resolver: fallbackResolver()}

	_, err := o.Optimize(context.Background(), domain.NewDestination(paris, 1), destinationsOf(lyon))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = o.Optimize(context.Background(), domain.NewSource(paris), destinationsOf(domain.GeoPoint{Lat: 0, Lon: 200}))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestOptimize_DurationMetricAndTwoOpt(t *testing.T) {
	// By distance the walk goes north first; by duration south is quicker.
	p := routing.NewMockRouteProvider([]routing.MockLeg{
		{From: origin, To: north, Km: 10, Minutes: 30},
		{From: origin, To: south, Km: 11, Minutes: 12},
		{From: north, To: south, Km: 20, Minutes: 25},
		{From: south, To: north, Km: 20, Minutes: 25},
		{From: north, To: origin, Km: 10, Minutes: 30},
		{From: south, To: origin, Km: 11, Minutes: 12},
	})

	o := &SequenceOptimizer{Resolver: fallbackResolver(), Costs: p, Metric: MetricDuration, TwoOpt: true}
	res, err := o.Optimize(context.Background(), domain.NewSource(origin), destinationsOf(north, south))
	require.NoError(t, err)
	assert.Equal(t, []domain.GeoPoint{south, north}, pointsOf(res.Destinations))
}

func TestOptimizeMission_AppliesOrder(t *testing.T) {
	m := domain.NewMission("tour", paris)
	m.Add(marseille)
	m.Add(lyon)

	o := &SequenceOptimizer{Resolver: fallbackResolver()}
	_, err := o.OptimizeMission(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, m.Destinations, 2)
	assert.Equal(t, lyon, m.Destinations[0].Point)
	assert.Equal(t, 1, m.Destinations[0].Sequence)
	assert.Equal(t, marseille, m.Destinations[1].Point)
	assert.Equal(t, 2, m.Destinations[1].Sequence)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricDistance, m)

	m, err = ParseMetric("duration")
	require.NoError(t, err)
	assert.Equal(t, MetricDuration, m)

	_, err = ParseMetric("fuel")
	assert.Error(t, err)
}
