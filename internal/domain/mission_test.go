package domain

import (
	"errors"
	"testing"
)

func TestMissionApplyOrder(t *testing.T) {
	// build test data
	m := NewMission("M-001", GeoPoint{Lat: 48.8566, Lon: 2.3522})
	lyon := m.Add(GeoPoint{Lat: 45.7640, Lon: 4.8357})
	marseille := m.Add(GeoPoint{Lat: 43.2965, Lon: 5.3698})
	nice := m.Add(GeoPoint{Lat: 43.7102, Lon: 7.2620})

	// call the method under test
	err := m.ApplyOrder([]Waypoint{nice, lyon, marseille})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// verify behavior
	want := []GeoPoint{nice.Point, lyon.Point, marseille.Point}
	for i, d := range m.Destinations {
		if d.Sequence != i+1 {
			t.Errorf("destination %d sequence = %d, want %d", i, d.Sequence, i+1)
		}
		if d.Point != want[i] {
			t.Errorf("destination %d point = %v, want %v", i, d.Point, want[i])
		}
	}

	req, err := m.Request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("request should be valid: %v", err)
	}
	if len(req.Waypoints) != 4 || req.Waypoints[1].Point != nice.Point {
		t.Fatalf("unexpected request waypoints: %+v", req.Waypoints)
	}
}

func TestMissionApplyOrderRejectsForeignPoint(t *testing.T) {
	m := NewMission("M-002", GeoPoint{Lat: 0, Lon: 0})
	a := m.Add(GeoPoint{Lat: 1, Lon: 1})
	m.Add(GeoPoint{Lat: 2, Lon: 2})

	err := m.ApplyOrder([]Waypoint{a, NewDestination(GeoPoint{Lat: 3, Lon: 3}, 2)})
	if err == nil {
		t.Fatal("expected error for unknown destination")
	}
	if m.Destinations[1].Point != (GeoPoint{Lat: 2, Lon: 2}) {
		t.Fatalf("mission must be unchanged after a rejected order")
	}
}

func TestMissionRequestOrdersBySequence(t *testing.T) {
	m := &Mission{
		Name:   "M-003",
		Source: NewSource(GeoPoint{Lat: 0, Lon: 0}),
		Destinations: []Waypoint{
			NewDestination(GeoPoint{Lat: 2, Lon: 2}, 2),
			NewDestination(GeoPoint{Lat: 1, Lon: 1}, 1),
		},
	}

	req, err := m.Request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Waypoints[1].Point.Lat != 1 || req.Waypoints[2].Point.Lat != 2 {
		t.Fatalf("waypoints not ordered by sequence: %+v", req.Waypoints)
	}

	m.Destinations[0].Sequence = 1
	if _, err := m.Request(); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("duplicate sequence: err = %v, want ErrInvalidRequest", err)
	}
}
