package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, out_of_bounds, incomplete_ring, ...
	Message   string `json:"message"` // Human-readable message
	Indexes   []int  `json:"indexes,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errRejected returns a 422 error for an edit the geometry rules refused.
func errRejected(c *fiber.Ctx, code, msg string) error {
	return newError(c, fiber.StatusUnprocessableEntity, code, msg)
}

// errFromDomain maps use case errors onto API errors. Unknown errors are
// logged and reported as 500 without their text.
func errFromDomain(c *fiber.Ctx, err error) error {
	var oob *domain.OutOfBoundsError
	switch {
	case errors.As(err, &oob):
		reqID, _ := c.Locals("requestid").(string)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(APIError{
			Status:    fiber.StatusUnprocessableEntity,
			Code:      "out_of_bounds",
			Message:   err.Error(),
			Indexes:   oob.Indexes,
			RequestID: reqID,
		})
	case errors.Is(err, domain.ErrOutOfBounds):
		return errRejected(c, "out_of_bounds", err.Error())
	case errors.Is(err, domain.ErrIncompleteRing):
		return errRejected(c, "incomplete_ring", err.Error())
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return errRejected(c, "invalid_coordinate", err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTenantMismatch):
		// another tenant's resources do not exist as far as the caller knows
		return errNotFound(c, "not found")
	case errors.Is(err, domain.ErrNothingToUndo), errors.Is(err, domain.ErrDraftConflict):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrPointIndex),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, usecases.ErrUnsupportedFormat),
		errors.Is(err, usecases.ErrTooManyRows):
		return errBadRequest(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
