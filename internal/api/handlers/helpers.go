package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"transport-route-service/internal/api/dto"
	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
	"transport-route-service/internal/platform/obs"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.L().Warn("encode failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// allowMethod answers 405 and returns false unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeBody reads exactly one JSON object with no unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMalformedGeometry):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		obs.L().Error(op+" failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toRouteResponse(res domain.RouteResult, costs *domain.CostParameters) dto.RouteResponse {
	geometry := make([][2]float64, len(res.Geometry))
	for i, p := range res.Geometry {
		geometry[i] = [2]float64{p.Lat, p.Lon}
	}

	out := dto.RouteResponse{
		Geometry:        geometry,
		Polyline:        geo.Encode(res.Geometry),
		DistanceKm:      res.DistanceKm,
		DurationMinutes: res.DurationMinutes,
		IsFallback:      res.IsFallback,
	}

	if costs != nil {
		b := costs.EstimateCost(res)
		out.Cost = &dto.CostResponse{
			Base:        b.Base,
			Distance:    b.Distance,
			Time:        b.Time,
			Fuel:        b.Fuel,
			Driver:      b.Driver,
			Toll:        b.Toll,
			Insurance:   b.Insurance,
			Maintenance: b.Maintenance,
			Total:       b.Total,
		}
	}
	return out
}
