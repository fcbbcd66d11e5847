package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundaryRing is an ordered polygon outline. The closing vertex is implicit:
// the last point connects back to the first.
type BoundaryRing []GeoPoint

// Complete reports whether the ring has enough vertices to be treated as a
// closed polygon.
func (r BoundaryRing) Complete() bool {
	return len(r) >= MinRingPoints
}

// Clone returns a copy that shares no backing array with r.
func (r BoundaryRing) Clone() BoundaryRing {
	if r == nil {
		return nil
	}
	out := make(BoundaryRing, len(r))
	copy(out, r)
	return out
}

// MinRingPoints is the number of vertices below which a ring is incomplete.
const MinRingPoints = 3

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// RingSummary is the derived geometry shown next to a boundary being edited.
type RingSummary struct {
	Points          int      `json:"points"`
	Complete        bool     `json:"complete"`
	AreaHectares    float64  `json:"area_hectares"`
	PerimeterMeters float64  `json:"perimeter_meters"`
	Centroid        GeoPoint `json:"centroid"`
	Bounds          *Bounds  `json:"bounds,omitempty"`
}
