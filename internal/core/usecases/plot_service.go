package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/ports"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

// PlotService handles plot boundaries inside farms.
type PlotService struct {
	plots     ports.PlotRepository
	farms     ports.FarmRepository
	publisher ports.EventPublisher
}

// NewPlotService creates a new PlotService. publisher may be nil.
func NewPlotService(plots ports.PlotRepository, farms ports.FarmRepository, publisher ports.EventPublisher) *PlotService {
	return &PlotService{plots: plots, farms: farms, publisher: publisher}
}

// PlotInput carries the editable fields of a plot.
type PlotInput struct {
	Name     string
	CropType string
	Boundary domain.BoundaryRing
}

// Create persists a plot whose every vertex lies inside its farm.
func (s *PlotService) Create(ctx context.Context, tenantID, farmID string, in PlotInput) (*domain.Plot, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: plot name must not be empty", domain.ErrInvalidInput)
	}
	farm, err := s.ownedFarm(ctx, tenantID, farmID)
	if err != nil {
		return nil, err
	}
	if err := checkInside(in.Boundary, farm.Boundary); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	plot := &domain.Plot{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		FarmID:    farmID,
		Name:      in.Name,
		CropType:  in.CropType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	setPlotGeometry(plot, in.Boundary)

	if err := s.plots.Create(ctx, plot); err != nil {
		return nil, fmt.Errorf("create plot: %w", err)
	}

	s.publish(ctx, "plot.created", plot)
	return plot, nil
}

// Get returns a plot owned by tenantID.
func (s *PlotService) Get(ctx context.Context, tenantID, id string) (*domain.Plot, error) {
	plot, err := s.plots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plot.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return plot, nil
}

// ListByFarm returns the plots of a farm owned by tenantID.
func (s *PlotService) ListByFarm(ctx context.Context, tenantID, farmID string) ([]domain.Plot, error) {
	if _, err := s.ownedFarm(ctx, tenantID, farmID); err != nil {
		return nil, err
	}
	return s.plots.ListByFarm(ctx, farmID)
}

// UpdateBoundary replaces a plot boundary after checking it against the farm.
func (s *PlotService) UpdateBoundary(ctx context.Context, tenantID, id string, boundary domain.BoundaryRing) (*domain.Plot, error) {
	plot, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	farm, err := s.ownedFarm(ctx, tenantID, plot.FarmID)
	if err != nil {
		return nil, err
	}
	if err := checkInside(boundary, farm.Boundary); err != nil {
		return nil, err
	}

	setPlotGeometry(plot, boundary)
	plot.UpdatedAt = time.Now().UTC()

	if err := s.plots.Update(ctx, plot); err != nil {
		return nil, fmt.Errorf("update plot: %w", err)
	}

	s.publish(ctx, "plot.updated", plot)
	return plot, nil
}

// Delete removes a plot.
func (s *PlotService) Delete(ctx context.Context, tenantID, id string) error {
	plot, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.plots.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete plot: %w", err)
	}
	s.publish(ctx, "plot.deleted", plot)
	return nil
}

func (s *PlotService) ownedFarm(ctx context.Context, tenantID, farmID string) (*domain.Farm, error) {
	farm, err := s.farms.GetByID(ctx, farmID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("farm %s: %w", farmID, domain.ErrNotFound)
		}
		return nil, err
	}
	if farm.TenantID != tenantID {
		return nil, fmt.Errorf("farm %s: %w", farmID, domain.ErrNotFound)
	}
	return farm, nil
}

func (s *PlotService) publish(ctx context.Context, kind string, plot *domain.Plot) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishBoundaryEvent(ctx, &domain.BoundaryEvent{
		Type:         kind,
		TenantID:     plot.TenantID,
		FarmID:       plot.FarmID,
		PlotID:       plot.ID,
		AreaHectares: plot.AreaHectares,
		Centroid:     plot.Centroid,
		At:           time.Now().UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "publish boundary event failed", "type", kind, "plot_id", plot.ID, "error", err)
	}
}

// checkInside requires a complete child ring and, when the parent is
// complete, every child vertex inside it.
func checkInside(child, parent domain.BoundaryRing) error {
	if !child.Complete() {
		return domain.ErrIncompleteRing
	}
	if outside := geospatial.ContainsAll(child, parent); len(outside) > 0 {
		metrics.BoundaryPointsRejected.WithLabelValues("out_of_bounds").Add(float64(len(outside)))
		return &domain.OutOfBoundsError{Indexes: outside}
	}
	return nil
}

func setPlotGeometry(plot *domain.Plot, boundary domain.BoundaryRing) {
	plot.Boundary = boundary.Clone()
	plot.AreaHectares = geospatial.Area(plot.Boundary)
	plot.Centroid = geospatial.Centroid(plot.Boundary)
	metrics.AreaComputations.WithLabelValues("plot").Inc()
}
