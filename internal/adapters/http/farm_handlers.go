package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
)

type boundaryRequest struct {
	Name     string `json:"name"`
	CropType string `json:"crop_type"`
	Boundary []any  `json:"boundary"`
}

// ListFarmsHandler returns the tenant's farms, paginated.
func ListFarmsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farms, err := deps.Farms.List(c.UserContext(), tenantID(c))
		if err != nil {
			return errFromDomain(c, err)
		}
		offset, limit := pageParams(c, 50, 200)
		return c.JSON(paginate(c, farms, offset, limit))
	}
}

// CreateFarmHandler creates a farm from a complete boundary.
func CreateFarmHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req boundaryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ring, err := strictRing(req.Boundary)
		if err != nil {
			return errFromDomain(c, err)
		}

		farm, err := deps.Farms.Create(c.UserContext(), tenantID(c), req.Name, ring)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(farm)
	}
}

// GetFarmHandler returns a single farm.
func GetFarmHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farm, err := deps.Farms.Get(c.UserContext(), tenantID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(farm)
	}
}

// DeleteFarmHandler removes a farm and its plots.
func DeleteFarmHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Farms.Delete(c.UserContext(), tenantID(c), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UpdateFarmBoundaryHandler replaces a farm boundary.
func UpdateFarmBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req boundaryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ring, err := strictRing(req.Boundary)
		if err != nil {
			return errFromDomain(c, err)
		}

		farm, err := deps.Farms.UpdateBoundary(c.UserContext(), tenantID(c), c.Params("id"), ring)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(farm)
	}
}

// FarmGeoJSONHandler returns a farm as a GeoJSON Feature.
func FarmGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farm, err := deps.Farms.Get(c.UserContext(), tenantID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		f := geospatial.ToFeature(farm.Boundary, map[string]any{
			"id":            farm.ID,
			"name":          farm.Name,
			"area_hectares": farm.AreaHectares,
		})
		data, err := f.MarshalJSON()
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// FarmsContainingHandler returns the farms whose boundary contains ?lat&lng.
func FarmsContainingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := geospatial.Validate(map[string]string{"lat": c.Query("lat"), "lng": c.Query("lng")})
		if !ok {
			return errBadRequest(c, "lat and lng must be a valid coordinate")
		}

		farms, err := deps.Farms.FindContaining(c.UserContext(), tenantID(c), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		if farms == nil {
			farms = []domain.Farm{}
		}
		return c.JSON(farms)
	}
}

// ListPlotsHandler returns the plots of a farm, paginated.
func ListPlotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plots, err := deps.Plots.ListByFarm(c.UserContext(), tenantID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		offset, limit := pageParams(c, 100, 500)
		return c.JSON(paginate(c, plots, offset, limit))
	}
}

// CreatePlotHandler creates a plot inside a farm.
func CreatePlotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req boundaryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ring, err := strictRing(req.Boundary)
		if err != nil {
			return errFromDomain(c, err)
		}

		plot, err := deps.Plots.Create(c.UserContext(), tenantID(c), c.Params("id"), usecases.PlotInput{
			Name:     req.Name,
			CropType: req.CropType,
			Boundary: ring,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(plot)
	}
}

// GetPlotHandler returns a single plot.
func GetPlotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plot, err := deps.Plots.Get(c.UserContext(), tenantID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(plot)
	}
}

// DeletePlotHandler removes a plot.
func DeletePlotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Plots.Delete(c.UserContext(), tenantID(c), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UpdatePlotBoundaryHandler replaces a plot boundary.
func UpdatePlotBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req boundaryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ring, err := strictRing(req.Boundary)
		if err != nil {
			return errFromDomain(c, err)
		}

		plot, err := deps.Plots.UpdateBoundary(c.UserContext(), tenantID(c), c.Params("id"), ring)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(plot)
	}
}
