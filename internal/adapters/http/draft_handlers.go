package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
	"github.com/irrigo/fieldkit/internal/pkg/telemetry"
)

// DraftResponse is what the map editor renders after every edit.
type DraftResponse struct {
	ID        string              `json:"id"`
	Kind      domain.DraftKind    `json:"kind"`
	FarmID    string              `json:"farm_id,omitempty"`
	Points    domain.BoundaryRing `json:"points"`
	Parent    domain.BoundaryRing `json:"parent,omitempty"`
	CanUndo   bool                `json:"can_undo"`
	UpdatedAt time.Time           `json:"updated_at"`
	Version   int64               `json:"version"`
	Summary   domain.RingSummary  `json:"summary"`
}

func draftResponse(svc *usecases.DraftService, d *domain.Draft) DraftResponse {
	points := d.Points
	if points == nil {
		points = domain.BoundaryRing{}
	}
	return DraftResponse{
		ID:        d.ID,
		Kind:      d.Kind,
		FarmID:    d.FarmID,
		Points:    points,
		Parent:    d.Parent,
		CanUndo:   len(d.History) > 0,
		UpdatedAt: d.UpdatedAt,
		Version:   d.Version,
		Summary:   svc.Summary(d),
	}
}

// CreateDraftHandler opens an edit session.
func CreateDraftHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Kind   domain.DraftKind `json:"kind"`
		FarmID string           `json:"farm_id"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Kind == "" {
			req.Kind = domain.DraftFarm
		}

		d, err := deps.Drafts.Create(c.UserContext(), tenantID(c), req.Kind, req.FarmID)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(draftResponse(deps.Drafts, d))
	}
}

// GetDraftHandler returns a draft with its summary.
func GetDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := deps.Drafts.Get(c.UserContext(), tenantID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(draftResponse(deps.Drafts, d))
	}
}

// DiscardDraftHandler drops a draft.
func DiscardDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Drafts.Discard(c.UserContext(), tenantID(c), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AppendPointHandler adds the coordinate in the body to the ring. The body
// is the coordinate object itself, {lat, lng} or {latitude, longitude}.
func AppendPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw map[string]any
		if err := c.BodyParser(&raw); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		d, err := deps.Drafts.Append(c.UserContext(), tenantID(c), c.Params("id"), raw)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(draftResponse(deps.Drafts, d))
	}
}

// MovePointHandler replaces the vertex at :index.
func MovePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		var raw map[string]any
		if err := c.BodyParser(&raw); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		d, err := deps.Drafts.Move(c.UserContext(), tenantID(c), c.Params("id"), index, raw)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(draftResponse(deps.Drafts, d))
	}
}

// RemovePointHandler deletes the vertex at :index.
func RemovePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}

		d, err := deps.Drafts.Remove(c.UserContext(), tenantID(c), c.Params("id"), index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(draftResponse(deps.Drafts, d))
	}
}

// UndoHandler reverts the last edit.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := deps.Drafts.Undo(c.UserContext(), tenantID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(draftResponse(deps.Drafts, d))
	}
}

// ReplacePointsHandler swaps the whole ring. Invalid coordinates are skipped
// and counted; a point outside the parent rejects the whole request.
func ReplacePointsHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Points []any `json:"points"`
		Sort   bool  `json:"sort"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		d, skipped, err := deps.Drafts.Replace(c.UserContext(), tenantID(c), c.Params("id"), req.Points, req.Sort)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"draft":   draftResponse(deps.Drafts, d),
			"skipped": skipped,
		})
	}
}

// ImportPointsHandler loads a CSV or XLSX upload (form field "file") into
// the draft. ?sort=true orders the points around their centroid.
func ImportPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.Tracer().Start(c.UserContext(), telemetry.SpanImport)
		defer span.End()

		fh, err := c.FormFile("file")
		if err != nil {
			return errBadRequest(c, "multipart field \"file\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return errBadRequest(c, "cannot read upload")
		}
		defer f.Close()

		res, err := deps.Imports.Parse(fh.Filename, f, c.QueryBool("sort", false))
		if err != nil {
			return errFromDomain(c, err)
		}

		d, err := deps.Drafts.ReplacePoints(ctx, tenantID(c), c.Params("id"), res.Points, false)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"draft":  draftResponse(deps.Drafts, d),
			"import": res,
		})
	}
}

// CommitDraftHandler persists the draft as a farm or plot.
func CommitDraftHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Name     string `json:"name"`
		CropType string `json:"crop_type"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Drafts.Commit(c.UserContext(), tenantID(c), c.Params("id"), req.Name, req.CropType)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}
