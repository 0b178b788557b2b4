package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()

	// CacheLookups counts route cache lookups by result (hit, miss, error)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_cache_lookups_total", Help: "Route cache lookups by result."},
		[]string{"result"},
	)
	// Resolutions counts resolved route requests by the branch that produced them
	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_resolutions_total", Help: "Route resolutions by source (degenerate, cache, network, fallback)."},
		[]string{"source"},
	)
	// ProviderLatency records outbound routing-service call latency in seconds
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_provider_request_duration_seconds", Help: "Routing provider request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"provider", "endpoint", "status"},
	)
	// MatrixCells counts optimizer cost-matrix cells by origin (provider, haversine)
	MatrixCells = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimizer_matrix_cells_total", Help: "Cost matrix cells by origin."},
		[]string{"origin"},
	)
	// HTTPRequests counts API requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records API request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(Resolutions)
		Registry.MustRegister(ProviderLatency)
		Registry.MustRegister(MatrixCells)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
