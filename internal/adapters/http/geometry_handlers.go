package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

// geometryRequest is the body of the stateless geometry endpoints. Points and
// rings hold raw coordinates in any accepted shape.
type geometryRequest struct {
	Point  any   `json:"point"`
	Points []any `json:"points"`
	Ring   []any `json:"ring"`
}

// strictRing validates every coordinate and fails if any is rejected.
// Persisted boundaries never drop vertices silently.
func strictRing(raws []any) (domain.BoundaryRing, error) {
	points, skipped := geospatial.ValidateArrayReport(raws)
	if skipped > 0 {
		metrics.BoundaryPointsRejected.WithLabelValues("invalid").Add(float64(skipped))
		return nil, fmt.Errorf("%d of %d coordinates: %w", skipped, len(raws), domain.ErrInvalidCoordinate)
	}
	return points, nil
}

// ValidateHandler normalizes a single point or a list of points.
func ValidateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geometryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if req.Point != nil {
			p, ok := geospatial.Validate(req.Point)
			if !ok {
				return c.JSON(fiber.Map{"valid": false})
			}
			return c.JSON(fiber.Map{"valid": true, "point": p})
		}

		points, skipped := geospatial.ValidateArrayReport(req.Points)
		return c.JSON(fiber.Map{"points": points, "skipped": skipped})
	}
}

// AreaHandler returns the area of a ring in hectares. Invalid coordinates
// are dropped before computing.
func AreaHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geometryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ring, skipped := geospatial.ValidateArrayReport(req.Ring)
		metrics.AreaComputations.WithLabelValues("api").Inc()
		return c.JSON(fiber.Map{
			"area_hectares": geospatial.Area(ring),
			"points":        len(ring),
			"skipped":       skipped,
		})
	}
}

// ContainsHandler tests a point against a ring.
func ContainsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geometryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, ok := geospatial.Validate(req.Point)
		if !ok {
			return errFromDomain(c, domain.ErrInvalidCoordinate)
		}
		ring, err := strictRing(req.Ring)
		if err != nil {
			return errFromDomain(c, err)
		}
		if !ring.Complete() {
			return errFromDomain(c, domain.ErrIncompleteRing)
		}

		return c.JSON(fiber.Map{"inside": geospatial.Contains(p, ring)})
	}
}

// CentroidHandler returns the vertex mean of a ring.
func CentroidHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geometryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ring, err := strictRing(req.Ring)
		if err != nil {
			return errFromDomain(c, err)
		}
		if len(ring) == 0 {
			return errBadRequest(c, "ring must not be empty")
		}
		return c.JSON(fiber.Map{"centroid": geospatial.Centroid(ring)})
	}
}

// SortHandler orders points counter-clockwise around their centroid.
func SortHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geometryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		points, skipped := geospatial.ValidateArrayReport(req.Points)
		return c.JSON(fiber.Map{
			"points":  geospatial.SortAroundCentroid(points),
			"skipped": skipped,
		})
	}
}

// SummaryHandler returns area, perimeter, centroid and bounds of a ring.
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req geometryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ring, err := strictRing(req.Ring)
		if err != nil {
			return errFromDomain(c, err)
		}
		metrics.AreaComputations.WithLabelValues("api").Inc()
		return c.JSON(geospatial.Summarize(ring))
	}
}
