package ports

import (
	"context"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// FarmRepository persists farms.
type FarmRepository interface {
	Create(ctx context.Context, farm *domain.Farm) error
	Update(ctx context.Context, farm *domain.Farm) error
	GetByID(ctx context.Context, id string) (*domain.Farm, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Farm, error)
	Delete(ctx context.Context, id string) error
	// FindCandidates returns the tenant's farms whose bounding box covers p.
	// Exact containment is left to the caller.
	FindCandidates(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error)
}

// PlotRepository persists plots.
type PlotRepository interface {
	Create(ctx context.Context, plot *domain.Plot) error
	Update(ctx context.Context, plot *domain.Plot) error
	GetByID(ctx context.Context, id string) (*domain.Plot, error)
	ListByFarm(ctx context.Context, farmID string) ([]domain.Plot, error)
	Delete(ctx context.Context, id string) error
}

// DraftStore keeps boundary drafts between edit requests.
type DraftStore interface {
	Get(ctx context.Context, id string) (*domain.Draft, error)
	// Save writes draft only if the stored copy still has draft.Version, and
	// increments draft.Version on success. Otherwise it returns
	// domain.ErrDraftConflict, or domain.ErrNotFound when the draft is gone.
	Save(ctx context.Context, draft *domain.Draft) error
	Delete(ctx context.Context, id string) error
}
