package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/metrics"
	"transport-route-service/internal/platform/obs"
	"transport-route-service/internal/ports"
)

// RouteResolver turns a RouteRequest into a RouteResult.
//
// Each non-degenerate request moves through a fixed set of states:
//
//	CacheCheck -> hit: return
//	           -> miss: NetworkAttempt -> ok: StoreAndReturn
//	                                   -> failed: FallbackCompute -> StoreAndReturn
//
// The network provider gets exactly one attempt; retries belong to its transport.
// Provider failures never escape: the straight-line fallback takes over.
// Exactly one cache store happens per request that misses the cache.
type RouteResolver struct {
	Cache ports.RouteCache
	// Network may be nil, in which case every miss resolves through Fallback.
	Network  ports.RouteProvider
	Fallback ports.RouteProvider
}

func NewRouteResolver(cache ports.RouteCache, network, fallback ports.RouteProvider) *RouteResolver {
	return &RouteResolver{Cache: cache, Network: network, Fallback: fallback}
}

type resolveState int

const (
	stateCacheCheck resolveState = iota
	stateNetworkAttempt
	stateFallbackCompute
	stateStoreAndReturn
)

func (s resolveState) String() string {
	switch s {
	case stateCacheCheck:
		return "cache_check"
	case stateNetworkAttempt:
		return "network_attempt"
	case stateFallbackCompute:
		return "fallback_compute"
	case stateStoreAndReturn:
		return "store_and_return"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Resolve returns the cached route for req, or computes and caches it.
// A cached fallback is returned as is; use Refresh to retry the network.
func (r *RouteResolver) Resolve(ctx context.Context, req domain.RouteRequest) (_ domain.RouteResult, err error) {
	defer obs.Time(ctx, "route.Resolve")(&err)
	return r.run(ctx, req, stateCacheCheck)
}

// Refresh skips the cache check and recomputes the route. A network result replaces a
// cached fallback; if the network fails again the cached network route (if any) is kept.
func (r *RouteResolver) Refresh(ctx context.Context, req domain.RouteRequest) (_ domain.RouteResult, err error) {
	defer obs.Time(ctx, "route.Refresh")(&err)
	return r.run(ctx, req, stateNetworkAttempt)
}

// Route adapts the resolver to ports.RouteProvider: points[0] is the source and
// the rest are destinations in order. Pairwise optimizer costs then share the cache.
func (r *RouteResolver) Route(ctx context.Context, points []domain.GeoPoint) (domain.RouteResult, error) {
	if len(points) == 0 {
		return domain.RouteResult{}, fmt.Errorf("%w: at least one waypoint is required", domain.ErrInvalidRequest)
	}

	dests := make([]domain.Waypoint, 0, len(points)-1)
	for i, p := range points[1:] {
		dests = append(dests, domain.NewDestination(p, i+1))
	}
	return r.Resolve(ctx, domain.NewRouteRequest(domain.NewSource(points[0]), dests))
}

func (r *RouteResolver) run(ctx context.Context, req domain.RouteRequest, state resolveState) (domain.RouteResult, error) {
	if err := req.Validate(); err != nil {
		return domain.RouteResult{}, fmt.Errorf("resolve route: %w", err)
	}

	if req.IsDegenerate() {
		metrics.Resolutions.WithLabelValues("degenerate").Inc()
		return domain.ZeroRoute(), nil
	}

	if r.Cache == nil || r.Fallback == nil {
		return domain.RouteResult{}, errors.New("resolve route: resolver requires a cache and a fallback provider")
	}

	points := req.Points()
	key := domain.RouteKey(points)
	log := obs.L().With(
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("route_key", key),
		zap.Int("points", len(points)),
	)

	var (
		result domain.RouteResult
		source string
	)

	for {
		switch state {
		case stateCacheCheck:
			entry, ok, err := r.Cache.Lookup(ctx, key)
			switch {
			case err != nil:
				metrics.CacheLookups.WithLabelValues("error").Inc()
				log.Warn("route cache lookup failed; treating as miss", zap.Error(err))
				state = stateNetworkAttempt
			case ok:
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				metrics.Resolutions.WithLabelValues("cache").Inc()
				return entry.Result, nil
			default:
				metrics.CacheLookups.WithLabelValues("miss").Inc()
				state = stateNetworkAttempt
			}

		case stateNetworkAttempt:
			if r.Network == nil {
				state = stateFallbackCompute
				continue
			}

			res, err := r.Network.Route(ctx, points)
			if err == nil {
				res.IsFallback = false
				result, source = res, "network"
				state = stateStoreAndReturn
				continue
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.RouteResult{}, ctxErr
			}

			log.Warn("route provider failed; using straight-line fallback", zap.Error(err))
			state = stateFallbackCompute

		case stateFallbackCompute:
			res, err := r.Fallback.Route(ctx, points)
			if err != nil {
				return domain.RouteResult{}, fmt.Errorf("resolve route: fallback: %w", err)
			}
			res.IsFallback = true
			result, source = res, "fallback"
			state = stateStoreAndReturn

		case stateStoreAndReturn:
			// An abandoned request writes nothing.
			if err := ctx.Err(); err != nil {
				return domain.RouteResult{}, err
			}

			entry, err := r.Cache.Store(ctx, key, result)
			if err != nil {
				log.Warn("route cache store failed", zap.Error(err))
			} else if entry.Result.IsFallback != result.IsFallback {
				// A network route stored concurrently outranks our fallback.
				result, source = entry.Result, "cache"
			}

			metrics.Resolutions.WithLabelValues(source).Inc()
			return result, nil

		default:
			return domain.RouteResult{}, fmt.Errorf("resolve route: unknown state %s", state)
		}
	}
}
