package geospatial

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// LatLngInput is the {lat, lng} coordinate shape. Fields may hold numbers or
// numeric strings, as they arrive from HTML form inputs.
type LatLngInput struct {
	Lat any `json:"lat"`
	Lng any `json:"lng"`
}

// LatitudeLongitudeInput is the {latitude, longitude} coordinate shape.
type LatitudeLongitudeInput struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
}

// Validate normalizes raw into a GeoPoint. It accepts GeoPoint, the two input
// shapes above, and decoded JSON objects (map[string]any / map[string]string)
// where lat/lng fall back to latitude/longitude field by field. ok is false for
// anything that does not yield two finite, in-range coordinates.
func Validate(raw any) (domain.GeoPoint, bool) {
	var lat, lng any

	switch v := raw.(type) {
	case domain.GeoPoint:
		lat, lng = v.Lat, v.Lng
	case *domain.GeoPoint:
		if v == nil {
			return domain.GeoPoint{}, false
		}
		lat, lng = v.Lat, v.Lng
	case LatLngInput:
		lat, lng = v.Lat, v.Lng
	case *LatLngInput:
		if v == nil {
			return domain.GeoPoint{}, false
		}
		lat, lng = v.Lat, v.Lng
	case LatitudeLongitudeInput:
		lat, lng = v.Latitude, v.Longitude
	case *LatitudeLongitudeInput:
		if v == nil {
			return domain.GeoPoint{}, false
		}
		lat, lng = v.Latitude, v.Longitude
	case map[string]any:
		lat = field(v, "lat", "latitude")
		lng = field(v, "lng", "longitude")
	case map[string]string:
		lat = stringField(v, "lat", "latitude")
		lng = stringField(v, "lng", "longitude")
	default:
		return domain.GeoPoint{}, false
	}

	la, ok := toFloat(lat)
	if !ok {
		return domain.GeoPoint{}, false
	}
	ln, ok := toFloat(lng)
	if !ok {
		return domain.GeoPoint{}, false
	}
	if !InRange(la, ln) {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: la, Lng: ln}, true
}

// ValidateArray validates every element and silently drops failures.
func ValidateArray(raw []any) []domain.GeoPoint {
	points, _ := ValidateArrayReport(raw)
	return points
}

// ValidateArrayReport is ValidateArray that also reports how many elements
// were dropped.
func ValidateArrayReport(raw []any) ([]domain.GeoPoint, int) {
	points := make([]domain.GeoPoint, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		p, ok := Validate(r)
		if !ok {
			skipped++
			continue
		}
		points = append(points, p)
	}
	return points, skipped
}

// InRange reports whether lat/lng are finite and inside WGS 84 limits.
func InRange(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// field returns m[primary], falling back to m[fallback] when primary is
// absent or null.
func field(m map[string]any, primary, fallback string) any {
	if v, ok := m[primary]; ok && v != nil {
		return v
	}
	return m[fallback]
}

func stringField(m map[string]string, primary, fallback string) any {
	if v, ok := m[primary]; ok {
		return v
	}
	if v, ok := m[fallback]; ok {
		return v
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
