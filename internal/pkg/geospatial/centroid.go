package geospatial

import "github.com/irrigo/fieldkit/internal/core/domain"

// Centroid returns the arithmetic mean of the ring's latitudes and longitudes.
// This is a planar approximation, fine for label placement at field scale.
// An empty ring yields {0, 0}, which callers must not treat as a location.
func Centroid(ring []domain.GeoPoint) domain.GeoPoint {
	if len(ring) == 0 {
		return domain.GeoPoint{}
	}
	var sumLat, sumLng float64
	for _, p := range ring {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(ring))
	return domain.GeoPoint{Lat: sumLat / n, Lng: sumLng / n}
}
