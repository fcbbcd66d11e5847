package geospatial

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

var errNoPolygon = errors.New("geojson: expected a Polygon geometry")

// ToGeoJSON encodes ring as a GeoJSON Polygon geometry.
func ToGeoJSON(ring []domain.GeoPoint) ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(orb.Polygon{toOrbRing(ring, true)}))
}

// ToFeature wraps ring in a GeoJSON Feature with a bbox and the given
// properties.
func ToFeature(ring []domain.GeoPoint, props map[string]any) *geojson.Feature {
	poly := orb.Polygon{toOrbRing(ring, true)}
	f := geojson.NewFeature(poly)
	if len(ring) > 0 {
		f.BBox = geojson.NewBBox(poly.Bound())
	}
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

// FromGeoJSON decodes the outer ring of a Polygon geometry, of a Feature
// holding one, or of the first Polygon feature of a FeatureCollection. The
// closing vertex is dropped and every vertex must pass Validate.
func FromGeoJSON(data []byte) ([]domain.GeoPoint, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var geom orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		geom = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		for _, f := range fc.Features {
			if _, ok := f.Geometry.(orb.Polygon); ok {
				geom = f.Geometry
				break
			}
		}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		geom = g.Geometry()
	}

	poly, ok := geom.(orb.Polygon)
	if !ok || len(poly) == 0 {
		return nil, errNoPolygon
	}

	outer := poly[0]
	if len(outer) > 1 && outer[0].Equal(outer[len(outer)-1]) {
		outer = outer[:len(outer)-1]
	}

	ring := make([]domain.GeoPoint, 0, len(outer))
	for i, pt := range outer {
		p, ok := Validate(domain.GeoPoint{Lat: pt.Lat(), Lng: pt.Lon()})
		if !ok {
			return nil, fmt.Errorf("vertex %d: %w", i, domain.ErrInvalidCoordinate)
		}
		ring = append(ring, p)
	}
	return ring, nil
}
