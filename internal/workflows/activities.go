package workflows

import (
	"context"
	"errors"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
)

// Activity names as registered on the worker.
const (
	ActivityLoadFarm           = "LoadFarm"
	ActivityListPlots          = "ListPlots"
	ActivityAuditPlot          = "AuditPlot"
	ActivityPublishAuditReport = "PublishAuditReport"
)

// AuditActivities holds the activity implementations for the boundary audit
// workflow. Register it with worker.RegisterActivity(&AuditActivities{...}).
type AuditActivities struct {
	Audits *usecases.AuditService
}

// LoadFarm fetches the farm under audit. A deleted farm is not retried.
func (a *AuditActivities) LoadFarm(ctx context.Context, farmID string) (*domain.Farm, error) {
	farm, err := a.Audits.LoadFarm(ctx, farmID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
	}
	return farm, err
}

// ListPlots fetches every plot of the farm.
func (a *AuditActivities) ListPlots(ctx context.Context, farmID string) ([]domain.Plot, error) {
	return a.Audits.ListPlots(ctx, farmID)
}

// AuditPlot recomputes one plot's area and checks its containment.
func (a *AuditActivities) AuditPlot(ctx context.Context, farm domain.Farm, plot domain.Plot) (domain.PlotAudit, error) {
	return a.Audits.AuditPlot(&farm, &plot), nil
}

// PublishAuditReport announces the finished report.
func (a *AuditActivities) PublishAuditReport(ctx context.Context, report domain.AuditReport) error {
	if err := a.Audits.PublishReport(ctx, &report); err != nil {
		return err
	}
	slog.InfoContext(ctx, "audit report published", "farm_id", report.FarmID, "problems", report.Problems)
	return nil
}
