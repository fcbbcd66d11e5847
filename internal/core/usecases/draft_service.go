package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/ports"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
	"github.com/irrigo/fieldkit/internal/pkg/telemetry"
)

// DraftOptions tunes the draft editor.
type DraftOptions struct {
	// MaxHistory bounds the undo stack.
	MaxHistory int
	// EnforceParent rejects plot points outside the farm boundary.
	EnforceParent bool
}

// DraftService runs boundary edit sessions. Every mutation builds a new
// points slice; a rejected mutation leaves the draft untouched.
type DraftService struct {
	store ports.DraftStore
	farms *FarmService
	plots *PlotService
	opts  DraftOptions
	now   func() time.Time
}

// NewDraftService creates a new DraftService.
func NewDraftService(store ports.DraftStore, farms *FarmService, plots *PlotService, opts DraftOptions) *DraftService {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 50
	}
	return &DraftService{store: store, farms: farms, plots: plots, opts: opts, now: time.Now}
}

// Create opens a draft. Plot drafts load the farm boundary as their parent.
func (s *DraftService) Create(ctx context.Context, tenantID string, kind domain.DraftKind, farmID string) (*domain.Draft, error) {
	d := &domain.Draft{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Kind:      kind,
		UpdatedAt: s.now().UTC(),
	}

	switch kind {
	case domain.DraftFarm:
		if farmID != "" {
			// editing an existing farm starts from its boundary
			farm, err := s.farms.Get(ctx, tenantID, farmID)
			if err != nil {
				return nil, err
			}
			d.FarmID = farm.ID
			d.Points = farm.Boundary.Clone()
		}
	case domain.DraftPlot:
		if farmID == "" {
			return nil, fmt.Errorf("%w: plot draft needs a farm_id", domain.ErrInvalidInput)
		}
		farm, err := s.farms.Get(ctx, tenantID, farmID)
		if err != nil {
			return nil, err
		}
		d.FarmID = farm.ID
		d.Parent = farm.Boundary.Clone()
	default:
		return nil, fmt.Errorf("%w: unknown draft kind %q", domain.ErrInvalidInput, kind)
	}

	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Get returns a draft owned by tenantID.
func (s *DraftService) Get(ctx context.Context, tenantID, id string) (*domain.Draft, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.TenantID != tenantID {
		return nil, domain.ErrTenantMismatch
	}
	return d, nil
}

// Append adds a point at the end of the ring.
func (s *DraftService) Append(ctx context.Context, tenantID, id string, raw any) (*domain.Draft, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	p, err := s.accept(d, raw, len(d.Points))
	if err != nil {
		return nil, err
	}

	next := make(domain.BoundaryRing, len(d.Points), len(d.Points)+1)
	copy(next, d.Points)
	next = append(next, p)

	return s.apply(ctx, d, next)
}

// Move replaces the point at index, as when a vertex is dragged.
func (s *DraftService) Move(ctx context.Context, tenantID, id string, index int, raw any) (*domain.Draft, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.Points) {
		return nil, domain.ErrPointIndex
	}
	p, err := s.accept(d, raw, index)
	if err != nil {
		return nil, err
	}

	next := d.Points.Clone()
	next[index] = p

	return s.apply(ctx, d, next)
}

// Remove deletes the point at index.
func (s *DraftService) Remove(ctx context.Context, tenantID, id string, index int) (*domain.Draft, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.Points) {
		return nil, domain.ErrPointIndex
	}

	next := make(domain.BoundaryRing, 0, len(d.Points)-1)
	next = append(next, d.Points[:index]...)
	next = append(next, d.Points[index+1:]...)

	return s.apply(ctx, d, next)
}

// Undo restores the ring as it was before the last mutation.
func (s *DraftService) Undo(ctx context.Context, tenantID, id string) (*domain.Draft, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if len(d.History) == 0 {
		return nil, domain.ErrNothingToUndo
	}

	last := len(d.History) - 1
	d.Points = d.History[last]
	d.History = d.History[:last:last]
	d.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}

// Replace swaps the whole ring, as when loading or importing coordinates.
// Invalid coordinates are dropped and reported through skipped; if any of the
// remaining points is outside the parent nothing is applied.
func (s *DraftService) Replace(ctx context.Context, tenantID, id string, raws []any, sortPoints bool) (d *domain.Draft, skipped int, err error) {
	points, skipped := geospatial.ValidateArrayReport(raws)
	if skipped > 0 {
		metrics.BoundaryPointsRejected.WithLabelValues("invalid").Add(float64(skipped))
	}
	d, err = s.ReplacePoints(ctx, tenantID, id, points, sortPoints)
	return d, skipped, err
}

// ReplacePoints is Replace for points that are already validated.
func (s *DraftService) ReplacePoints(ctx context.Context, tenantID, id string, points []domain.GeoPoint, sortPoints bool) (*domain.Draft, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	next := domain.BoundaryRing(points).Clone()
	if sortPoints {
		next = geospatial.SortAroundCentroid(next)
	}

	if s.opts.EnforceParent {
		if outside := geospatial.ContainsAll(next, d.Parent); len(outside) > 0 {
			metrics.BoundaryPointsRejected.WithLabelValues("out_of_bounds").Add(float64(len(outside)))
			return nil, &domain.OutOfBoundsError{Indexes: outside}
		}
	}

	return s.apply(ctx, d, next)
}

// CommitResult holds whatever entity a committed draft produced.
type CommitResult struct {
	Farm *domain.Farm `json:"farm,omitempty"`
	Plot *domain.Plot `json:"plot,omitempty"`
}

// Commit persists the draft as a farm or plot and discards it. Farm drafts
// opened from an existing farm update that farm's boundary.
func (s *DraftService) Commit(ctx context.Context, tenantID, id, name, cropType string) (*CommitResult, error) {
	d, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !d.Points.Complete() {
		return nil, domain.ErrIncompleteRing
	}

	var res CommitResult
	switch d.Kind {
	case domain.DraftFarm:
		if d.FarmID != "" {
			res.Farm, err = s.farms.UpdateBoundary(ctx, tenantID, d.FarmID, d.Points)
		} else {
			res.Farm, err = s.farms.Create(ctx, tenantID, name, d.Points)
		}
	case domain.DraftPlot:
		res.Plot, err = s.plots.Create(ctx, tenantID, d.FarmID, PlotInput{
			Name:     name,
			CropType: cropType,
			Boundary: d.Points,
		})
	default:
		err = fmt.Errorf("unknown draft kind %q", d.Kind)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("discard committed draft: %w", err)
	}
	return &res, nil
}

// Discard drops a draft without persisting it.
func (s *DraftService) Discard(ctx context.Context, tenantID, id string) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Summary derives area, perimeter and centroid of the draft ring.
func (s *DraftService) Summary(d *domain.Draft) domain.RingSummary {
	metrics.AreaComputations.WithLabelValues("draft").Inc()
	return geospatial.Summarize(d.Points)
}

// accept validates a raw coordinate destined for position index.
func (s *DraftService) accept(d *domain.Draft, raw any, index int) (domain.GeoPoint, error) {
	p, ok := geospatial.Validate(raw)
	if !ok {
		metrics.BoundaryPointsRejected.WithLabelValues("invalid").Inc()
		return domain.GeoPoint{}, domain.ErrInvalidCoordinate
	}
	if s.opts.EnforceParent && d.Parent.Complete() && !geospatial.Contains(p, d.Parent) {
		metrics.BoundaryPointsRejected.WithLabelValues("out_of_bounds").Inc()
		return domain.GeoPoint{}, &domain.OutOfBoundsError{Indexes: []int{index}}
	}
	return p, nil
}

// apply records the current ring in history and installs next.
func (s *DraftService) apply(ctx context.Context, d *domain.Draft, next domain.BoundaryRing) (*domain.Draft, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanDraftMutation)
	defer span.End()

	history := make([]domain.BoundaryRing, 0, len(d.History)+1)
	history = append(history, d.History...)
	history = append(history, d.Points)
	if over := len(history) - s.opts.MaxHistory; over > 0 {
		history = history[over:]
	}

	d.History = history
	d.Points = next
	d.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return d, nil
}
