package domain

import (
	"errors"
	"math"
	"testing"
)

func TestRouteRequestValidate(t *testing.T) {
	src := NewSource(GeoPoint{Lat: 48.8566, Lon: 2.3522})
	lyon := NewDestination(GeoPoint{Lat: 45.7640, Lon: 4.8357}, 1)

	tests := []struct {
		name    string
		req     RouteRequest
		wantErr bool
	}{
		{"source only", RouteRequest{Waypoints: []Waypoint{src}}, false},
		{"source and destination", NewRouteRequest(src, []Waypoint{lyon}), false},
		{"empty", RouteRequest{}, true},
		{"destination first", RouteRequest{Waypoints: []Waypoint{lyon}}, true},
		{"latitude out of range", RouteRequest{Waypoints: []Waypoint{NewSource(GeoPoint{Lat: 91})}}, true},
		{"longitude out of range", RouteRequest{Waypoints: []Waypoint{NewSource(GeoPoint{Lon: -180.5})}}, true},
		{"nan", RouteRequest{Waypoints: []Waypoint{NewSource(GeoPoint{Lat: math.NaN()})}}, true},
		{"sequence gap", NewRouteRequest(src, []Waypoint{NewDestination(lyon.Point, 2)}), true},
		{"two sources", RouteRequest{Waypoints: []Waypoint{src, src}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("err = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRouteKeyOrderSensitive(t *testing.T) {
	a := GeoPoint{Lat: 48.8566, Lon: 2.3522}
	b := GeoPoint{Lat: 45.7640, Lon: 4.8357}
	c := GeoPoint{Lat: 43.2965, Lon: 5.3698}

	if RouteKey([]GeoPoint{a, b, c}) == RouteKey([]GeoPoint{a, c, b}) {
		t.Fatal("A->B->C and A->C->B must have different keys")
	}
	if RouteKey([]GeoPoint{a, b}) != RouteKey([]GeoPoint{a, b}) {
		t.Fatal("key must be deterministic")
	}
}

func TestRouteKeyIgnoresJitter(t *testing.T) {
	a := GeoPoint{Lat: 48.856600001, Lon: 2.352199999}
	b := GeoPoint{Lat: 48.8566, Lon: 2.3522}
	if RouteKey([]GeoPoint{a}) != RouteKey([]GeoPoint{b}) {
		t.Fatal("sub-precision jitter must not change the key")
	}

	z := GeoPoint{Lat: -0.000001, Lon: 0}
	if RouteKey([]GeoPoint{z}) != RouteKey([]GeoPoint{{}}) {
		t.Fatal("-0 and 0 must hash alike")
	}
}

func TestEstimateCost(t *testing.T) {
	p := DefaultCostParameters()
	b := p.EstimateCost(RouteResult{DistanceKm: 100, DurationMinutes: 120})

	// fuel: 100km at 30l/100km * 12 = 360
	if b.Fuel != 360 {
		t.Errorf("fuel = %v, want 360", b.Fuel)
	}
	if b.Driver != 40 {
		t.Errorf("driver = %v, want 40", b.Driver)
	}
	sum := b.Base + b.Distance + b.Time + b.Fuel + b.Driver + b.Toll + b.Insurance + b.Maintenance
	if math.Abs(b.Total-sum) > 1e-9 {
		t.Errorf("total = %v, want %v", b.Total, sum)
	}
}
