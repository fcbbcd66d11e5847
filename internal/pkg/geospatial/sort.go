package geospatial

import (
	"math"
	"sort"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// SortAroundCentroid orders an unordered point cloud into a ring by sorting
// on the angle of each point around the centroid, ascending from -π.
//
// The result is only a simple polygon when the true shape is roughly
// star-shaped around its centroid, which holds for typical field outlines.
// Concave shapes may come out self-intersecting. The input is not modified.
func SortAroundCentroid(points []domain.GeoPoint) []domain.GeoPoint {
	c := Centroid(points)

	type angled struct {
		p     domain.GeoPoint
		angle float64
	}
	items := make([]angled, len(points))
	for i, p := range points {
		items[i] = angled{p: p, angle: math.Atan2(p.Lat-c.Lat, p.Lng-c.Lng)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].angle < items[j].angle
	})

	out := make([]domain.GeoPoint, len(items))
	for i, it := range items {
		out[i] = it.p
	}
	return out
}
