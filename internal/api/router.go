package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transport-route-service/internal/api/handlers"
	"transport-route-service/internal/domain"
	"transport-route-service/internal/metrics"
	"transport-route-service/internal/ports"
	"transport-route-service/internal/services"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Resolver  *services.RouteResolver
	Optimizer *services.SequenceOptimizer
	Cache     ports.RouteCache
	// Costs enables cost estimates in route responses when non-nil.
	Costs *domain.CostParameters
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{Resolver: d.Resolver, Costs: d.Costs}
	optimizeHandler := &handlers.OptimizeHandler{Optimizer: d.Optimizer, Costs: d.Costs}
	cacheHandler := &handlers.CacheHandler{Cache: d.Cache}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/routes", routeHandler.Resolve)
	mux.HandleFunc("/routes/refresh", routeHandler.Refresh)
	mux.HandleFunc("/optimize", optimizeHandler.Optimize)
	mux.HandleFunc("/cache/stats", cacheHandler.Stats)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	pattern := func(r *http.Request) string {
		if _, p := mux.Handler(r); p != "" {
			return p
		}
		return "unmatched"
	}

	return requestIDMiddleware(loggingMiddleware(pattern, mux))
}
