package handlers

import (
	"net/http"

	"transport-route-service/internal/api/dto"
	"transport-route-service/internal/ports"
)

type CacheHandler struct {
	Cache ports.RouteCache
}

func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.Cache.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, "cache stats", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.CacheStatsResponse{
		TotalEntries:    stats.TotalEntries,
		NetworkEntries:  stats.NetworkEntries,
		FallbackEntries: stats.FallbackEntries,
		TotalUsage:      stats.TotalUsage,
		HitPotential:    stats.HitPotential(),
	})
}
