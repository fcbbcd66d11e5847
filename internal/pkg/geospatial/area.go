package geospatial

import (
	"math"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// earthRadiusMeters is the sphere radius used by the area approximation.
const earthRadiusMeters = 6371000.0

const squareMetersPerHectare = 10000.0

// Area returns the approximate surface, in hectares, enclosed by ring.
//
// It sums the spherical excess of each edge against the equator:
//
//	Δ += rad(lng_j − lng_i) × (2 + sin(rad(lat_i)) + sin(rad(lat_j)))
//
// and returns |Δ| × R² / 2. Good at field scale; it is not a geodesic area.
// The boundary audit recomputes stored areas with this same function.
func Area(ring []domain.GeoPoint) float64 {
	n := len(ring)
	if n < domain.MinRingPoints {
		return 0
	}

	var delta float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		p1, p2 := ring[i], ring[j]
		delta += toRad(p2.Lng-p1.Lng) * (2 + math.Sin(toRad(p1.Lat)) + math.Sin(toRad(p2.Lat)))
	}

	squareMeters := math.Abs(delta) * earthRadiusMeters * earthRadiusMeters / 2
	return squareMeters / squareMetersPerHectare
}
