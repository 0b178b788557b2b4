// Package geo holds the pure geometry helpers shared by every caller:
// the polyline path codec and the haversine distance engine.
//
// The polyline format is the encoded polyline algorithm used by Google, OSRM and
// OpenRouteService: coordinates are scaled by 1e5, delta-encoded against the
// previous point, zig-zag encoded and written as 5-bit chunks offset by 63.
package geo

import (
	"fmt"
	"math"

	"transport-route-service/internal/domain"
)

const polylineFactor = 1e5

// Encode encodes points into a polyline string with 5 decimal digits of precision.
func Encode(points []domain.GeoPoint) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*8)
	var prevLat, prevLon int64

	for _, p := range points {
		lat := int64(math.Round(p.Lat * polylineFactor))
		lon := int64(math.Round(p.Lon * polylineFactor))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(buf)
}

func appendValue(buf []byte, v int64) []byte {
	u := uint64(v << 1)
	if v < 0 {
		u = ^u
	}

	for u >= 0x20 {
		buf = append(buf, byte(0x20|(u&0x1f))+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

// Decode decodes a polyline string. An empty string yields an empty slice.
// Truncated input, an unterminated continuation chunk, a latitude without its
// longitude, bytes outside the encoding alphabet or a decoded coordinate outside
// the valid latitude/longitude range fail with domain.ErrMalformedGeometry.
func Decode(s string) ([]domain.GeoPoint, error) {
	points := make([]domain.GeoPoint, 0, len(s)/4)

	var lat, lon int64
	i := 0
	for i < len(s) {
		dLat, next, err := readValue(s, i)
		if err != nil {
			return nil, err
		}
		if next >= len(s) {
			return nil, fmt.Errorf("%w: latitude at offset %d has no longitude", domain.ErrMalformedGeometry, i)
		}

		dLon, next, err := readValue(s, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lon += dLon
		p := domain.GeoPoint{
			Lat: float64(lat) / polylineFactor,
			Lon: float64(lon) / polylineFactor,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", domain.ErrMalformedGeometry, len(points), err)
		}
		points = append(points, p)
	}

	return points, nil
}

func readValue(s string, i int) (int64, int, error) {
	var result uint64
	var shift uint

	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("%w: unterminated value at end of input", domain.ErrMalformedGeometry)
		}

		c := s[i]
		if c < 63 || c > 126 {
			return 0, i, fmt.Errorf("%w: invalid byte %q at offset %d", domain.ErrMalformedGeometry, c, i)
		}
		if shift >= 60 {
			return 0, i, fmt.Errorf("%w: value overflow at offset %d", domain.ErrMalformedGeometry, i)
		}

		b := uint64(c - 63)
		i++
		result |= (b & 0x1f) << shift
		shift += 5

		if b < 0x20 {
			break
		}
	}

	v := int64(result >> 1)
	if result&1 != 0 {
		v = ^v
	}
	return v, i, nil
}
