package dto

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Destination is a stop; Sequence 0 means "use its position in the list".
type Destination struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Sequence int     `json:"sequence,omitempty"`
}

type RouteRequest struct {
	Source       Point         `json:"source"`
	Destinations []Destination `json:"destinations"`
}

type CostResponse struct {
	Base        float64 `json:"base"`
	Distance    float64 `json:"distance"`
	Time        float64 `json:"time"`
	Fuel        float64 `json:"fuel"`
	Driver      float64 `json:"driver"`
	Toll        float64 `json:"toll"`
	Insurance   float64 `json:"insurance"`
	Maintenance float64 `json:"maintenance"`
	Total       float64 `json:"total"`
}

type RouteResponse struct {
	// Geometry as [lat, lon] pairs.
	Geometry        [][2]float64  `json:"geometry"`
	Polyline        string        `json:"polyline"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	IsFallback      bool          `json:"is_fallback"`
	Cost            *CostResponse `json:"cost,omitempty"`
}

type OptimizeRequest struct {
	Source       Point   `json:"source"`
	Destinations []Point `json:"destinations"`
	// Metric is "distance" (default) or "duration".
	Metric string `json:"metric,omitempty"`
}

type OptimizeResponse struct {
	Destinations []Destination `json:"destinations"`
	Route        RouteResponse `json:"route"`
}

type CacheStatsResponse struct {
	TotalEntries    int `json:"total_entries"`
	NetworkEntries  int `json:"network_entries"`
	FallbackEntries int `json:"fallback_entries"`
	TotalUsage      int `json:"total_usage"`
	HitPotential    int `json:"hit_potential"`
}
