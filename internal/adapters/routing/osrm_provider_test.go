package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
)

var (
	paris     = domain.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	lyon      = domain.GeoPoint{Lat: 45.7640, Lon: 4.8357}
	marseille = domain.GeoPoint{Lat: 43.2965, Lon: 5.3698}
)

func newTestOSRM(t *testing.T, handler http.HandlerFunc) *OSRMProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewOSRMProvider(Options{BaseURL: server.URL, Timeout: 2 * time.Second})
	p.c.backoff = time.Millisecond
	return p
}

func TestOSRMProvider_RoutePolyline(t *testing.T) {
	encoded := geo.Encode([]domain.GeoPoint{paris, lyon, marseille})

	p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/2.352200,48.856600;4.835700,45.764000;5.369800,43.296500", r.URL.Path)
		assert.Equal(t, "polyline", r.URL.Query().Get("geometries"))
		assert.Equal(t, "full", r.URL.Query().Get("overview"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"geometry":%q,"distance":775000,"duration":27000}]}`, encoded)
	})

	result, err := p.Route(context.Background(), []domain.GeoPoint{paris, lyon, marseille})
	require.NoError(t, err)

	assert.False(t, result.IsFallback)
	assert.InDelta(t, 775.0, result.DistanceKm, 1e-9)
	assert.InDelta(t, 450.0, result.DurationMinutes, 1e-9)
	require.Len(t, result.Geometry, 3)
	assert.InDelta(t, paris.Lat, result.Geometry[0].Lat, 1e-5)
	assert.InDelta(t, marseille.Lon, result.Geometry[2].Lon, 1e-5)
}

func TestOSRMProvider_RouteGeoJSON(t *testing.T) {
	p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":"Ok","routes":[{"geometry":{"type":"LineString","coordinates":[[2.3522,48.8566],[4.8357,45.764]]},"distance":465000,"duration":16200}]}`)
	})

	result, err := p.Route(context.Background(), []domain.GeoPoint{paris, lyon})
	require.NoError(t, err)
	assert.Equal(t, []domain.GeoPoint{paris, lyon}, result.Geometry)
	assert.InDelta(t, 465.0, result.DistanceKm, 1e-9)
	assert.InDelta(t, 270.0, result.DurationMinutes, 1e-9)
}

func TestOSRMProvider_RouteFailures(t *testing.T) {
	// Each chunk adds 60 degrees of latitude, so the third sample lands at 180.
	outOfRange := fmt.Sprintf(`{"code":"Ok","routes":[{"geometry":%q,"distance":1,"duration":1}]}`,
		strings.Repeat(geo.Encode([]domain.GeoPoint{{Lat: 60}}), 3))

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		alsoErr error
	}{
		{name: "no route code", status: 200, body: `{"code":"NoRoute","message":"Impossible route"}`, wantErr: domain.ErrNoRouteFound},
		{name: "no route as 400", status: 400, body: `{"code":"NoSegment","message":"Could not find a matching segment"}`, wantErr: domain.ErrNoRouteFound},
		{name: "empty routes", status: 200, body: `{"code":"Ok","routes":[]}`, wantErr: domain.ErrNoRouteFound},
		{name: "invalid query", status: 400, body: `{"code":"InvalidQuery"}`, wantErr: domain.ErrProviderUnavailable},
		{name: "bad gateway", status: 502, body: `upstream down`, wantErr: domain.ErrProviderUnavailable},
		{name: "not json", status: 200, body: `<html>`, wantErr: domain.ErrProviderUnavailable},
		{
			name:    "undecodable geometry",
			status:  200,
			body:    `{"code":"Ok","routes":[{"geometry":"_p~i","distance":1,"duration":1}]}`,
			wantErr: domain.ErrProviderUnavailable,
			alsoErr: domain.ErrMalformedGeometry,
		},
		{
			name:    "empty polyline",
			status:  200,
			body:    `{"code":"Ok","routes":[{"geometry":"","distance":0,"duration":0}]}`,
			wantErr: domain.ErrProviderUnavailable,
			alsoErr: domain.ErrMalformedGeometry,
		},
		{
			name:    "empty linestring",
			status:  200,
			body:    `{"code":"Ok","routes":[{"geometry":{"type":"LineString","coordinates":[]},"distance":0,"duration":0}]}`,
			wantErr: domain.ErrProviderUnavailable,
			alsoErr: domain.ErrMalformedGeometry,
		},
		{
			name:    "single sample polyline",
			status:  200,
			body:    `{"code":"Ok","routes":[{"geometry":"_p~iF~ps|U","distance":0,"duration":0}]}`,
			wantErr: domain.ErrProviderUnavailable,
			alsoErr: domain.ErrMalformedGeometry,
		},
		{
			name:    "out of range polyline",
			status:  200,
			body:    outOfRange,
			wantErr: domain.ErrProviderUnavailable,
			alsoErr: domain.ErrMalformedGeometry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := p.Route(context.Background(), []domain.GeoPoint{paris, lyon})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.alsoErr != nil {
				assert.ErrorIs(t, err, tt.alsoErr)
			}
		})
	}
}

func TestOSRMProvider_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"geometry":%q,"distance":0,"duration":0}]}`,
			geo.Encode([]domain.GeoPoint{paris, paris}))
	})

	result, err := p.Route(context.Background(), []domain.GeoPoint{paris, paris})
	require.NoError(t, err)
	assert.Len(t, result.Geometry, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOSRMProvider_CancelledContext(t *testing.T) {
	p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Route(ctx, []domain.GeoPoint{paris, lyon})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestOSRMProvider_RejectsSinglePoint(t *testing.T) {
	p := NewOSRMProvider(Options{})

	_, err := p.Route(context.Background(), []domain.GeoPoint{paris})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestOSRMProvider_Matrix(t *testing.T) {
	p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/table/v1/driving/"))
		assert.Equal(t, "distance,duration", r.URL.Query().Get("annotations"))
		fmt.Fprint(w, `{
			"code":"Ok",
			"distances":[[0,465000,null],[465000,0,315000],[775000,315000,0]],
			"durations":[[0,16200,null],[16200,0,10800],[27000,10800,0]]
		}`)
	})

	m, err := p.Matrix(context.Background(), []domain.GeoPoint{paris, lyon, marseille})
	require.NoError(t, err)
	require.Len(t, m, 3)

	require.NotNil(t, m[0][1])
	assert.InDelta(t, 465.0, m[0][1].DistanceKm, 1e-9)
	assert.InDelta(t, 270.0, m[0][1].DurationMinutes, 1e-9)
	assert.Nil(t, m[0][2])
	require.NotNil(t, m[2][0])
	assert.InDelta(t, 775.0, m[2][0].DistanceKm, 1e-9)
}

func TestOSRMProvider_MatrixShapeMismatch(t *testing.T) {
	p := newTestOSRM(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","distances":[[0]],"durations":[[0]]}`)
	})

	_, err := p.Matrix(context.Background(), []domain.GeoPoint{paris, lyon})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
