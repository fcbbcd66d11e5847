package geospatial

import (
	"github.com/paulmach/orb"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// BoundsOf returns the bounding box of ring, or nil when it is empty.
func BoundsOf(ring []domain.GeoPoint) *domain.Bounds {
	if len(ring) == 0 {
		return nil
	}
	b := toOrbRing(ring, false).Bound()
	return &domain.Bounds{
		MinLat: b.Min.Lat(),
		MinLng: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLng: b.Max.Lon(),
	}
}

// Summarize computes everything the editor shows next to a boundary.
func Summarize(ring []domain.GeoPoint) domain.RingSummary {
	return domain.RingSummary{
		Points:          len(ring),
		Complete:        len(ring) >= domain.MinRingPoints,
		AreaHectares:    Area(ring),
		PerimeterMeters: Perimeter(ring),
		Centroid:        Centroid(ring),
		Bounds:          BoundsOf(ring),
	}
}

// toOrbRing converts to orb's [lng, lat] order. When closed is set the first
// vertex is repeated at the end, as GeoJSON and PostGIS require.
func toOrbRing(ring []domain.GeoPoint, closed bool) orb.Ring {
	out := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		out = append(out, orb.Point{p.Lng, p.Lat})
	}
	if closed && len(ring) > 0 {
		out = append(out, orb.Point{ring[0].Lng, ring[0].Lat})
	}
	return out
}
