package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/ports"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

// FarmService handles farm boundaries.
type FarmService struct {
	farms     ports.FarmRepository
	plots     ports.PlotRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewFarmService creates a new FarmService. cache and publisher may be nil.
func NewFarmService(farms ports.FarmRepository, plots ports.PlotRepository, cache ports.CacheService, publisher ports.EventPublisher) *FarmService {
	return &FarmService{farms: farms, plots: plots, cache: cache, publisher: publisher}
}

// Create validates the ring, derives area and centroid, and persists a farm.
func (s *FarmService) Create(ctx context.Context, tenantID, name string, boundary domain.BoundaryRing) (*domain.Farm, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: farm name must not be empty", domain.ErrInvalidInput)
	}
	if !boundary.Complete() {
		return nil, domain.ErrIncompleteRing
	}

	now := time.Now().UTC()
	farm := &domain.Farm{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	setFarmGeometry(farm, boundary)

	if err := s.farms.Create(ctx, farm); err != nil {
		return nil, fmt.Errorf("create farm: %w", err)
	}

	s.publish(ctx, "farm.created", farm)
	return farm, nil
}

// Get returns a farm owned by tenantID.
func (s *FarmService) Get(ctx context.Context, tenantID, id string) (*domain.Farm, error) {
	cacheKey := "farms:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var farm domain.Farm
			if err := json.Unmarshal(data, &farm); err == nil && farm.TenantID == tenantID {
				metrics.CacheHits.WithLabelValues("farm").Inc()
				return &farm, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("farm").Inc()
	}

	farm, err := s.farms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if farm.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}

	if s.cache != nil {
		if data, err := json.Marshal(farm); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return farm, nil
}

// List returns the tenant's farms.
func (s *FarmService) List(ctx context.Context, tenantID string) ([]domain.Farm, error) {
	return s.farms.ListByTenant(ctx, tenantID)
}

// UpdateBoundary replaces a farm boundary. Existing plots must still fit
// inside the new ring.
func (s *FarmService) UpdateBoundary(ctx context.Context, tenantID, id string, boundary domain.BoundaryRing) (*domain.Farm, error) {
	if !boundary.Complete() {
		return nil, domain.ErrIncompleteRing
	}

	farm, err := s.farms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if farm.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}

	plots, err := s.plots.ListByFarm(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	for _, p := range plots {
		if outside := geospatial.ContainsAll(p.Boundary, boundary); len(outside) > 0 {
			return nil, fmt.Errorf("plot %q would fall outside the new boundary: %w", p.Name, &domain.OutOfBoundsError{Indexes: outside})
		}
	}

	setFarmGeometry(farm, boundary)
	farm.UpdatedAt = time.Now().UTC()

	if err := s.farms.Update(ctx, farm); err != nil {
		return nil, fmt.Errorf("update farm: %w", err)
	}
	s.invalidate(ctx, id)

	s.publish(ctx, "farm.updated", farm)
	return farm, nil
}

// Delete removes a farm.
func (s *FarmService) Delete(ctx context.Context, tenantID, id string) error {
	farm, err := s.farms.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if farm.TenantID != tenantID {
		return domain.ErrNotFound
	}
	if err := s.farms.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}
	s.invalidate(ctx, id)

	s.publish(ctx, "farm.deleted", farm)
	return nil
}

// FindContaining returns the tenant's farms whose boundary contains p.
func (s *FarmService) FindContaining(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error) {
	candidates, err := s.farms.FindCandidates(ctx, tenantID, p)
	if err != nil {
		return nil, err
	}
	var out []domain.Farm
	for _, f := range candidates {
		if f.Boundary.Complete() && geospatial.Contains(p, f.Boundary) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FarmService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "farms:id:"+id)
	}
}

func (s *FarmService) publish(ctx context.Context, kind string, farm *domain.Farm) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishBoundaryEvent(ctx, &domain.BoundaryEvent{
		Type:         kind,
		TenantID:     farm.TenantID,
		FarmID:       farm.ID,
		AreaHectares: farm.AreaHectares,
		Centroid:     farm.Centroid,
		At:           time.Now().UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "publish boundary event failed", "type", kind, "farm_id", farm.ID, "error", err)
	}
}

func setFarmGeometry(farm *domain.Farm, boundary domain.BoundaryRing) {
	farm.Boundary = boundary.Clone()
	farm.AreaHectares = geospatial.Area(farm.Boundary)
	farm.Centroid = geospatial.Centroid(farm.Boundary)
	metrics.AreaComputations.WithLabelValues("farm").Inc()
}

// isNotFound reports whether err means the entity does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
