package domain

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Coordinates are rounded to 5 decimals (~1m) before hashing so that
// floating-point jitter does not produce distinct keys.
const keyPrecision = 1e5

// RoundCoordinate rounds a coordinate to the cache key precision.
func RoundCoordinate(v float64) float64 {
	r := math.Round(v*keyPrecision) / keyPrecision
	if r == 0 {
		// Collapse -0 so it hashes like 0.
		return 0
	}
	return r
}

// RouteKey derives the canonical, order-sensitive cache key for a waypoint sequence.
func RouteKey(points []GeoPoint) string {
	buf := make([]byte, 0, 8+len(points)*24)
	buf = strconv.AppendInt(buf, int64(len(points)), 10)
	buf = append(buf, '|')
	for _, p := range points {
		buf = strconv.AppendFloat(buf, RoundCoordinate(p.Lat), 'f', 5, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, RoundCoordinate(p.Lon), 'f', 5, 64)
		buf = append(buf, ';')
	}

	return strconv.FormatUint(xxhash.Sum64(buf), 16)
}
