package geospatial

import "github.com/irrigo/fieldkit/internal/core/domain"

// Contains reports whether point lies inside ring using the even-odd rule: a
// ray cast along the latitude axis toggles the result at every edge it
// crosses.
//
// Rings with fewer than 3 points give an arbitrary answer. Callers must check
// the ring length first (see ContainsAll).
func Contains(point domain.GeoPoint, ring []domain.GeoPoint) bool {
	inside := false
	j := len(ring) - 1

	for i := 0; i < len(ring); i++ {
		pi, pj := ring[i], ring[j]

		if (pi.Lng > point.Lng) != (pj.Lng > point.Lng) &&
			point.Lat < (pj.Lat-pi.Lat)*(point.Lng-pi.Lng)/(pj.Lng-pi.Lng)+pi.Lat {
			inside = !inside
		}
		j = i
	}

	return inside
}

// ContainsAll returns the indexes of child points that fall outside parent.
// An incomplete parent constrains nothing and yields nil.
func ContainsAll(child, parent []domain.GeoPoint) []int {
	if len(parent) < domain.MinRingPoints {
		return nil
	}
	var outside []int
	for i, p := range child {
		if !Contains(p, parent) {
			outside = append(outside, i)
		}
	}
	return outside
}
