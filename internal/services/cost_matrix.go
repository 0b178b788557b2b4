package services

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
	"transport-route-service/internal/metrics"
	"transport-route-service/internal/platform/obs"
	"transport-route-service/internal/ports"
)

const defaultParallelism = 5

// BuildCostMatrix returns the n×n leg matrix for points. Cell [i][j] is the leg i→j
// and the diagonal is zero.
//
// A MatrixProvider is asked once; missing cells, or the whole matrix when the call
// fails, are filled with straight-line legs. Any other provider is asked for every
// ordered pair concurrently, at most parallelism at a time, and each failing pair
// falls back on its own. A nil provider yields a straight-line matrix.
//
// The only error returned is the context's.
func BuildCostMatrix(
	ctx context.Context,
	points []domain.GeoPoint,
	provider ports.RouteProvider,
	parallelism int,
) ([][]domain.Leg, error) {
	n := len(points)
	out := make([][]domain.Leg, n)
	for i := range out {
		out[i] = make([]domain.Leg, n)
	}
	if n < 2 {
		return out, nil
	}

	var fromProvider, estimated atomic.Int64
	defer func() {
		metrics.MatrixCells.WithLabelValues("provider").Add(float64(fromProvider.Load()))
		metrics.MatrixCells.WithLabelValues("haversine").Add(float64(estimated.Load()))
	}()

	straight := func(i, j int) {
		out[i][j] = geo.StraightLeg(points[i], points[j], 0)
		estimated.Add(1)
	}
	fillAll := func() {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					straight(i, j)
				}
			}
		}
	}

	if provider == nil {
		fillAll()
		return out, nil
	}

	if mp, ok := provider.(ports.MatrixProvider); ok {
		m, err := mp.Matrix(ctx, points)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			obs.L().Warn("cost matrix request failed; using straight-line costs",
				zap.String("req_id", obs.RequestID(ctx)), zap.Int("points", n), zap.Error(err))
			fillAll()
			return out, nil
		}

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				if i < len(m) && j < len(m[i]) && m[i][j] != nil {
					out[i][j] = *m[i][j]
					fromProvider.Add(1)
					continue
				}
				straight(i, j)
			}
		}
		return out, nil
	}

	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			i, j := i, j
			// Each goroutine owns cell [i][j]; no two write the same cell.
			g.Go(func() error {
				res, err := provider.Route(gctx, []domain.GeoPoint{points[i], points[j]})
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					obs.L().Debug("pair cost failed; using straight-line cost",
						zap.Int("from", i), zap.Int("to", j), zap.Error(err))
					straight(i, j)
					return nil
				}
				out[i][j] = domain.Leg{DistanceKm: res.DistanceKm, DurationMinutes: res.DurationMinutes}
				fromProvider.Add(1)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
