package domain

import "fmt"

type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// A GeoPoint tagged with its role in a mission.
// Destinations carry a 1-based visiting sequence; the source has Sequence 0.
type Waypoint struct {
	Point    GeoPoint
	Role     Role
	Sequence int
}

func NewSource(p GeoPoint) Waypoint {
	return Waypoint{Point: p, Role: RoleSource}
}

func NewDestination(p GeoPoint, seq int) Waypoint {
	return Waypoint{Point: p, Role: RoleDestination, Sequence: seq}
}

// Resequence returns a copy of destinations renumbered 1..N in slice order.
func Resequence(destinations []Waypoint) []Waypoint {
	out := make([]Waypoint, len(destinations))
	for i, d := range destinations {
		out[i] = NewDestination(d.Point, i+1)
	}
	return out
}

// ValidateSequence checks that destination sequence numbers form the contiguous run 1..N
// with no duplicates, regardless of slice order.
func ValidateSequence(destinations []Waypoint) error {
	seen := make(map[int]struct{}, len(destinations))
	for i, d := range destinations {
		if d.Role != RoleDestination {
			return fmt.Errorf("%w: waypoint %d has role %q, want %q", ErrInvalidRequest, i, d.Role, RoleDestination)
		}
		if d.Sequence < 1 || d.Sequence > len(destinations) {
			return fmt.Errorf("%w: destination sequence %d outside 1..%d", ErrInvalidRequest, d.Sequence, len(destinations))
		}
		if _, ok := seen[d.Sequence]; ok {
			return fmt.Errorf("%w: duplicate destination sequence %d", ErrInvalidRequest, d.Sequence)
		}
		seen[d.Sequence] = struct{}{}
	}
	return nil
}
