package handlers

import (
	"context"
	"net/http"

	"transport-route-service/internal/api/dto"
	"transport-route-service/internal/domain"
	"transport-route-service/internal/services"
)

type RouteHandler struct {
	Resolver *services.RouteResolver
	// Costs, when set, adds a cost estimate to every response.
	Costs *domain.CostParameters
}

// Resolve returns the cached or freshly computed route for the given visiting order.
func (h *RouteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "resolve route", h.Resolver.Resolve)
}

// Refresh bypasses the cache so a fallback route can be upgraded to a road route.
func (h *RouteHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "refresh route", h.Resolver.Refresh)
}

func (h *RouteHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	resolve func(context.Context, domain.RouteRequest) (domain.RouteResult, error),
) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dests := make([]domain.Waypoint, len(req.Destinations))
	for i, d := range req.Destinations {
		seq := d.Sequence
		if seq == 0 {
			seq = i + 1
		}
		dests[i] = domain.NewDestination(domain.GeoPoint{Lat: d.Lat, Lon: d.Lon}, seq)
	}

	source := domain.NewSource(domain.GeoPoint{Lat: req.Source.Lat, Lon: req.Source.Lon})
	routeReq := domain.NewRouteRequest(source, dests)

	res, err := resolve(r.Context(), routeReq)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(res, h.Costs))
}
