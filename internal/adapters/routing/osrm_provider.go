package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
	"transport-route-service/internal/platform/obs"
)

const (
	defaultOSRMBaseURL = "https://router.project-osrm.org"
	defaultOSRMProfile = "driving"
)

// OSRMProvider implements RouteProvider and MatrixProvider against an OSRM server.
//
// The provider is safe for concurrent use.
type OSRMProvider struct {
	c       *client
	baseURL string
	profile string
}

func NewOSRMProvider(opts Options) *OSRMProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}
	profile := opts.Profile
	if profile == "" {
		profile = defaultOSRMProfile
	}

	return &OSRMProvider{
		c:       newClient("osrm", opts),
		baseURL: baseURL,
		profile: profile,
	}
}

type osrmRouteResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry json.RawMessage `json:"geometry"`
	Distance float64         `json:"distance"`
	Duration float64         `json:"duration"`
}

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

type geoJSONLine struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// Route fetches the driving route through points in order.
func (o *OSRMProvider) Route(ctx context.Context, points []domain.GeoPoint) (_ domain.RouteResult, err error) {
	defer obs.Time(ctx, "osrm.Route")(&err)

	if err := requireRoutable(points); err != nil {
		return domain.RouteResult{}, err
	}

	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=polyline&steps=false",
		o.baseURL, o.profile, osrmCoordinates(points))

	var rr osrmRouteResponse
	if err := o.c.getJSON(ctx, "route", url, &rr); err != nil {
		return domain.RouteResult{}, o.classify(ctx, "osrm route", err)
	}

	if err := osrmCodeError("osrm route", rr.Code, rr.Message); err != nil {
		return domain.RouteResult{}, err
	}

	if len(rr.Routes) == 0 {
		return domain.RouteResult{}, fmt.Errorf("osrm route: %w: empty route list", domain.ErrNoRouteFound)
	}

	route := rr.Routes[0]
	geometry, err := decodeOSRMGeometry(route.Geometry)
	if err != nil {
		return domain.RouteResult{}, fmt.Errorf("osrm route: %w: %w", domain.ErrProviderUnavailable, err)
	}
	if err := requirePath("osrm route", geometry); err != nil {
		return domain.RouteResult{}, err
	}

	km, minutes := kmAndMinutes(route.Distance, route.Duration)
	return domain.RouteResult{
		Geometry:        geometry,
		DistanceKm:      km,
		DurationMinutes: minutes,
	}, nil
}

// Matrix fetches the full n×n table for points. Unreachable pairs are nil.
func (o *OSRMProvider) Matrix(ctx context.Context, points []domain.GeoPoint) (_ [][]*domain.Leg, err error) {
	defer obs.Time(ctx, "osrm.Matrix")(&err)

	if err := requireRoutable(points); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/table/v1/%s/%s?annotations=distance,duration",
		o.baseURL, o.profile, osrmCoordinates(points))

	var tr osrmTableResponse
	if err := o.c.getJSON(ctx, "table", url, &tr); err != nil {
		return nil, o.classify(ctx, "osrm table", err)
	}

	if err := osrmCodeError("osrm table", tr.Code, tr.Message); err != nil {
		return nil, err
	}

	return buildLegMatrix("osrm table", len(points), tr.Distances, tr.Durations)
}

// classify maps transport errors, reading the OSRM code out of 4xx bodies.
func (o *OSRMProvider) classify(ctx context.Context, op string, err error) error {
	var he *httpStatusError
	if errors.As(err, &he) && he.Code < 500 {
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal([]byte(he.Body), &body) == nil && body.Code != "" {
			if codeErr := osrmCodeError(op, body.Code, body.Message); codeErr != nil {
				return codeErr
			}
		}
	}
	return unavailable(ctx, op, err)
}

func osrmCodeError(op, code, message string) error {
	switch code {
	case "Ok":
		return nil
	case "NoRoute", "NoSegment", "NoTable", "NoMatch":
		return fmt.Errorf("%s: %w: %s %s", op, domain.ErrNoRouteFound, code, message)
	default:
		return fmt.Errorf("%s: %w: code %q %s", op, domain.ErrProviderUnavailable, code, message)
	}
}

// osrmCoordinates renders points as "lon,lat;lon,lat".
func osrmCoordinates(points []domain.GeoPoint) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', 6, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', 6, 64))
	}
	return b.String()
}

// decodeOSRMGeometry accepts an encoded polyline string or a GeoJSON LineString.
func decodeOSRMGeometry(raw json.RawMessage) ([]domain.GeoPoint, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: route has no geometry", domain.ErrMalformedGeometry)
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrMalformedGeometry, err)
		}
		return geo.Decode(encoded)
	}

	var line geoJSONLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedGeometry, err)
	}
	return lonLatPairs(line.Coordinates)
}

// lonLatPairs converts raw [lon, lat] pairs into points.
func lonLatPairs(pairs [][]float64) ([]domain.GeoPoint, error) {
	out := make([]domain.GeoPoint, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d values", domain.ErrMalformedGeometry, i, len(pair))
		}
		p := domain.GeoPoint{Lat: pair[1], Lon: pair[0]}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: coordinate %d: %v", domain.ErrMalformedGeometry, i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// buildLegMatrix zips distance and duration tables into legs. A missing metric leaves the cell nil.
func buildLegMatrix(op string, n int, distances, durations [][]*float64) ([][]*domain.Leg, error) {
	if len(distances) != n || len(durations) != n {
		return nil, fmt.Errorf(
			"%s: %w: expected %d rows; got distances=%d durations=%d",
			op, domain.ErrProviderUnavailable, n, len(distances), len(durations),
		)
	}

	out := make([][]*domain.Leg, n)
	for i := 0; i < n; i++ {
		if len(distances[i]) != n || len(durations[i]) != n {
			return nil, fmt.Errorf(
				"%s: %w: row %d lengths distances=%d durations=%d, want %d",
				op, domain.ErrProviderUnavailable, i, len(distances[i]), len(durations[i]), n,
			)
		}

		out[i] = make([]*domain.Leg, n)
		for j := 0; j < n; j++ {
			metersPtr := distances[i][j]
			secondsPtr := durations[i][j]
			if metersPtr == nil || secondsPtr == nil {
				continue
			}
			km, minutes := kmAndMinutes(*metersPtr, *secondsPtr)
			out[i][j] = &domain.Leg{DistanceKm: km, DurationMinutes: minutes}
		}
	}

	return out, nil
}
