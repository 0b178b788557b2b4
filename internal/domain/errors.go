package domain

import "errors"

var (
	// Path geometry could not be decoded.
	ErrMalformedGeometry = errors.New("malformed geometry")
	// Routing service unreachable, timed out or answered with a non-success status.
	ErrProviderUnavailable = errors.New("route provider unavailable")
	// Routing service was reachable but reported no feasible path.
	ErrNoRouteFound = errors.New("no route found")
	// Request rejected before any cache or provider interaction.
	ErrInvalidRequest = errors.New("invalid route request")
)
