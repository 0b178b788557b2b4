package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinate in degrees.
// Two points are equal when their coordinates are equal.
type GeoPoint struct {
	Lat float64
	Lon float64
}

func NewGeoPoint(lat, lon float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate reports ErrInvalidRequest for non-finite or out-of-range coordinates.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidRequest, p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidRequest, p.Lon)
	}
	return nil
}

// Return coordinates as [lon, lat] for external API compatibility.
func (p GeoPoint) LonLat() []float64 { return []float64{p.Lon, p.Lat} }

func (p GeoPoint) String() string { return fmt.Sprintf("(%.5f,%.5f)", p.Lat, p.Lon) }
