package handlers

import (
	"net/http"

	"transport-route-service/internal/api/dto"
	"transport-route-service/internal/domain"
	"transport-route-service/internal/services"
)

type OptimizeHandler struct {
	Optimizer *services.SequenceOptimizer
	Costs     *domain.CostParameters
}

// Optimize orders the destinations with the nearest-neighbour heuristic and returns the route.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	optimizer := h.Optimizer
	if req.Metric != "" {
		metric, err := services.ParseMetric(req.Metric)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		// Per-request copy; the shared optimizer is never mutated.
		o := *h.Optimizer
		o.Metric = metric
		optimizer = &o
	}

	dests := make([]domain.Waypoint, len(req.Destinations))
	for i, d := range req.Destinations {
		dests[i] = domain.NewDestination(domain.GeoPoint{Lat: d.Lat, Lon: d.Lon}, i+1)
	}
	source := domain.NewSource(domain.GeoPoint{Lat: req.Source.Lat, Lon: req.Source.Lon})

	res, err := optimizer.Optimize(r.Context(), source, dests)
	if err != nil {
		writeServiceError(w, r, "optimize", err)
		return
	}

	out := dto.OptimizeResponse{
		Destinations: make([]dto.Destination, 0, len(res.Destinations)),
		Route:        toRouteResponse(res.Route, h.Costs),
	}
	for _, d := range res.Destinations {
		out.Destinations = append(out.Destinations, dto.Destination{
			Lat:      d.Point.Lat,
			Lon:      d.Point.Lon,
			Sequence: d.Sequence,
		})
	}

	writeJSON(w, r, http.StatusOK, out)
}
