// Package geo provides great-circle distance math and proximity matching
// over last-known positions.
package geo

import "math"

const earthRadiusM = 6371e3

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180 &&
		!math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude)
}

// Distance returns the haversine great-circle distance between a and b in
// meters. ok is false when either point is out of bounds; the distance is
// zero in that case and must not be compared against a radius.
func Distance(a, b Point) (float64, bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}

	la1 := a.Latitude * math.Pi / 180
	la2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c, true
}

// Near reports whether a and b are within radiusMeters of each other,
// boundary inclusive. Malformed coordinates never match.
func Near(a, b Point, radiusMeters float64) bool {
	d, ok := Distance(a, b)
	return ok && d <= radiusMeters
}

// MatchNearby filters candidates down to those whose position, obtained
// via pos, lies within radiusMeters of origin. Candidates without a
// position are skipped. Input order is preserved.
func MatchNearby[T any](origin Point, candidates []T, radiusMeters float64, pos func(T) (Point, bool)) []T {
	matched := make([]T, 0, len(candidates))
	for _, c := range candidates {
		p, ok := pos(c)
		if !ok {
			continue
		}
		if Near(origin, p, radiusMeters) {
			matched = append(matched, c)
		}
	}
	return matched
}
