package usecases

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/ports"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
	"github.com/irrigo/fieldkit/internal/pkg/telemetry"
)

// AreaDriftTolerance is how far, in hectares, a stored area may be from a
// recomputed one before the audit flags it.
const AreaDriftTolerance = 0.01

// AuditService re-checks persisted boundaries.
type AuditService struct {
	farms     ports.FarmRepository
	plots     ports.PlotRepository
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewAuditService creates a new AuditService.
func NewAuditService(farms ports.FarmRepository, plots ports.PlotRepository, publisher ports.EventPublisher) *AuditService {
	return &AuditService{farms: farms, plots: plots, publisher: publisher, now: time.Now}
}

// LoadFarm fetches the farm under audit.
func (s *AuditService) LoadFarm(ctx context.Context, farmID string) (*domain.Farm, error) {
	farm, err := s.farms.GetByID(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("load farm %s: %w", farmID, err)
	}
	return farm, nil
}

// ListPlots fetches the plots of the farm under audit.
func (s *AuditService) ListPlots(ctx context.Context, farmID string) ([]domain.Plot, error) {
	plots, err := s.plots.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("list plots of %s: %w", farmID, err)
	}
	return plots, nil
}

// AuditPlot recomputes a plot's area and checks it against the farm boundary.
func (s *AuditService) AuditPlot(farm *domain.Farm, plot *domain.Plot) domain.PlotAudit {
	computed := geospatial.Area(plot.Boundary)
	metrics.AreaComputations.WithLabelValues("audit").Inc()

	a := domain.PlotAudit{
		PlotID:         plot.ID,
		StoredArea:     plot.AreaHectares,
		ComputedArea:   computed,
		AreaDrift:      math.Abs(computed-plot.AreaHectares) > AreaDriftTolerance,
		IncompleteRing: !plot.Boundary.Complete(),
	}
	if !a.IncompleteRing {
		a.OutsidePoints = geospatial.ContainsAll(plot.Boundary, farm.Boundary)
	}

	if a.AreaDrift {
		metrics.AuditProblems.WithLabelValues("area_drift").Inc()
	}
	if a.IncompleteRing {
		metrics.AuditProblems.WithLabelValues("incomplete_ring").Inc()
	}
	if len(a.OutsidePoints) > 0 {
		metrics.AuditProblems.WithLabelValues("out_of_bounds").Inc()
	}
	return a
}

// BuildReport assembles plot audits into a report.
func (s *AuditService) BuildReport(farm *domain.Farm, audits []domain.PlotAudit) *domain.AuditReport {
	r := &domain.AuditReport{
		FarmID:    farm.ID,
		TenantID:  farm.TenantID,
		Plots:     audits,
		CheckedAt: s.now().UTC(),
	}
	for _, a := range audits {
		if a.HasProblem() {
			r.Problems++
		}
	}
	return r
}

// AuditFarm runs a full audit in-process, without a workflow engine.
func (s *AuditService) AuditFarm(ctx context.Context, farmID string) (*domain.AuditReport, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAudit)
	defer span.End()

	farm, err := s.LoadFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	plots, err := s.ListPlots(ctx, farmID)
	if err != nil {
		return nil, err
	}

	audits := make([]domain.PlotAudit, 0, len(plots))
	for i := range plots {
		audits = append(audits, s.AuditPlot(farm, &plots[i]))
	}
	return s.BuildReport(farm, audits), nil
}

// PublishReport sends the report to the event broker.
func (s *AuditService) PublishReport(ctx context.Context, report *domain.AuditReport) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishAuditReport(ctx, report); err != nil {
		return fmt.Errorf("publish audit report: %w", err)
	}
	return nil
}
