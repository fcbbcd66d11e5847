package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// TaskQueue is the queue the audit worker polls.
const TaskQueue = "boundary-audit"

// WorkflowID names the audit of one farm. Only one audit per farm runs at a
// time.
func WorkflowID(farmID string) string {
	return "boundary-audit-" + farmID
}

// BoundaryAuditWorkflow re-checks every plot of a farm: the stored area must
// match a recomputation within 0.01 ha and every vertex must lie inside the
// farm boundary. The report is published whether or not problems were found.
func BoundaryAuditWorkflow(ctx workflow.Context, farmID string) (*domain.AuditReport, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting boundary audit", "farmID", farmID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var farm domain.Farm
	if err := workflow.ExecuteActivity(ctx, ActivityLoadFarm, farmID).Get(ctx, &farm); err != nil {
		return nil, err
	}

	var plots []domain.Plot
	if err := workflow.ExecuteActivity(ctx, ActivityListPlots, farmID).Get(ctx, &plots); err != nil {
		return nil, err
	}

	futures := make([]workflow.Future, len(plots))
	for i, p := range plots {
		futures[i] = workflow.ExecuteActivity(ctx, ActivityAuditPlot, farm, p)
	}

	report := &domain.AuditReport{
		FarmID:    farm.ID,
		TenantID:  farm.TenantID,
		Plots:     make([]domain.PlotAudit, 0, len(plots)),
		CheckedAt: workflow.Now(ctx).UTC(),
	}
	for _, f := range futures {
		var a domain.PlotAudit
		if err := f.Get(ctx, &a); err != nil {
			return nil, err
		}
		if a.HasProblem() {
			report.Problems++
		}
		report.Plots = append(report.Plots, a)
	}

	if err := workflow.ExecuteActivity(ctx, ActivityPublishAuditReport, *report).Get(ctx, nil); err != nil {
		logger.Warn("publishing audit report failed", "error", err)
		return report, err
	}

	logger.Info("Boundary audit finished", "farmID", farmID, "problems", report.Problems)
	return report, nil
}
