package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
	"transport-route-service/internal/platform/obs"
)

const (
	defaultORSBaseURL = "https://api.openrouteservice.org"
	defaultORSProfile = "driving-car"
)

// ORSProvider implements RouteProvider and MatrixProvider using OpenRouteService.
//
// The provider is safe for concurrent use.
type ORSProvider struct {
	c       *client
	baseURL string
	profile string
}

func NewORSProvider(opts Options) (*ORSProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultORSBaseURL
	}
	profile := opts.Profile
	if profile == "" {
		profile = defaultORSProfile
	}

	return &ORSProvider{
		c:       newClient("ors", opts),
		baseURL: baseURL,
		profile: profile,
	}, nil
}

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
	Units     string      `json:"units"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

func (o *ORSProvider) Route(ctx context.Context, points []domain.GeoPoint) (_ domain.RouteResult, err error) {
	defer obs.Time(ctx, "ors.Route")(&err)

	if err := requireRoutable(points); err != nil {
		return domain.RouteResult{}, err
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)
	body := directionsRequest{Coordinates: lonLatList(points)}

	var dr directionsResponse
	if err := o.c.postJSON(ctx, "directions", endpoint, body, &dr); err != nil {
		return domain.RouteResult{}, o.classify(ctx, "ors directions", err)
	}

	if len(dr.Routes) == 0 {
		return domain.RouteResult{}, fmt.Errorf("ors directions: %w: empty route list", domain.ErrNoRouteFound)
	}

	route := dr.Routes[0]
	if route.Geometry == "" {
		return domain.RouteResult{}, fmt.Errorf("ors directions: %w: %w: route has no geometry",
			domain.ErrProviderUnavailable, domain.ErrMalformedGeometry)
	}

	geometry, err := geo.Decode(route.Geometry)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("ors directions: %w: %w", domain.ErrProviderUnavailable, err)
	}
	if err := requirePath("ors directions", geometry); err != nil {
		return domain.RouteResult{}, err
	}

	km, minutes := kmAndMinutes(route.Summary.Distance, route.Summary.Duration)
	return domain.RouteResult{
		Geometry:        geometry,
		DistanceKm:      km,
		DurationMinutes: minutes,
	}, nil
}

// Matrix retrieves distances and durations between every pair of points in one call.
func (o *ORSProvider) Matrix(ctx context.Context, points []domain.GeoPoint) (_ [][]*domain.Leg, err error) {
	defer obs.Time(ctx, "ors.Matrix")(&err)

	if err := requireRoutable(points); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)
	body := matrixRequest{
		Locations: lonLatList(points),
		Metrics:   []string{"distance", "duration"},
		Units:     "m",
	}

	var mr matrixResponse
	if err := o.c.postJSON(ctx, "matrix", endpoint, body, &mr); err != nil {
		return nil, o.classify(ctx, "ors matrix", err)
	}

	return buildLegMatrix("ors matrix", len(points), mr.Distances, mr.Durations)
}

// ORS answers 404 when no routable path or point exists.
func (o *ORSProvider) classify(ctx context.Context, op string, err error) error {
	var he *httpStatusError
	if errors.As(err, &he) && he.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNoRouteFound, err)
	}
	return unavailable(ctx, op, err)
}

func lonLatList(points []domain.GeoPoint) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = p.LonLat()
	}
	return out
}
