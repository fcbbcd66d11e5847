package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrIncompleteRing    = errors.New("boundary needs at least 3 points")
	ErrOutOfBounds       = errors.New("point outside parent boundary")
	ErrPointIndex        = errors.New("point index out of range")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrTenantMismatch    = errors.New("resource belongs to another tenant")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDraftConflict     = errors.New("draft was changed by another edit")
)

// OutOfBoundsError lists the child vertices that fall outside a parent ring.
type OutOfBoundsError struct {
	Indexes []int
}

func (e *OutOfBoundsError) Error() string {
	idx := make([]string, len(e.Indexes))
	for i, v := range e.Indexes {
		idx[i] = strconv.Itoa(v)
	}
	if len(idx) == 1 {
		return fmt.Sprintf("point %s is outside the farm boundary", idx[0])
	}
	return fmt.Sprintf("%d points are outside the farm boundary (%s)", len(idx), strings.Join(idx, ", "))
}

func (e *OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }
