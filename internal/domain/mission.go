package domain

import "fmt"

// Mission aggregate: a vehicle departs Source and visits Destinations in sequence order.
type Mission struct {
	Name         string
	Source       Waypoint
	Destinations []Waypoint
}

func NewMission(name string, source GeoPoint) *Mission {
	return &Mission{
		Name:   name,
		Source: NewSource(source),
	}
}

// Add appends a destination at the end of the current visiting order.
func (m *Mission) Add(p GeoPoint) Waypoint {
	wp := NewDestination(p, len(m.Destinations)+1)
	m.Destinations = append(m.Destinations, wp)
	return wp
}

// Request returns the route request for the current visiting order.
func (m *Mission) Request() (RouteRequest, error) {
	if err := ValidateSequence(m.Destinations); err != nil {
		return RouteRequest{}, fmt.Errorf("mission %q: %w", m.Name, err)
	}

	ordered := make([]Waypoint, len(m.Destinations))
	for _, d := range m.Destinations {
		ordered[d.Sequence-1] = d
	}
	return NewRouteRequest(m.Source, ordered), nil
}

// ApplyOrder replaces the destinations with an optimized order, renumbering 1..N.
// The order must contain exactly the mission's current destination points.
func (m *Mission) ApplyOrder(order []Waypoint) error {
	if len(order) != len(m.Destinations) {
		return fmt.Errorf("apply order: mission %q has %d destinations, order has %d", m.Name, len(m.Destinations), len(order))
	}

	remaining := make(map[GeoPoint]int, len(m.Destinations))
	for _, d := range m.Destinations {
		remaining[d.Point]++
	}
	for _, d := range order {
		if remaining[d.Point] == 0 {
			return fmt.Errorf("apply order: mission %q has no destination at %s", m.Name, d.Point)
		}
		remaining[d.Point]--
	}

	m.Destinations = Resequence(order)
	return nil
}
