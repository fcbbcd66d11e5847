package geospatial

import (
	"math"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two GeoPoints.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Perimeter returns the length in meters of the closed ring, or 0 when the
// ring is incomplete.
func Perimeter(ring []domain.GeoPoint) float64 {
	n := len(ring)
	if n < domain.MinRingPoints {
		return 0
	}
	var total float64
	for i := 0; i < n; i++ {
		total += Distance(ring[i], ring[(i+1)%n])
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
