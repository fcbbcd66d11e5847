package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/irrigo/fieldkit/internal/adapters/nats"
	"github.com/irrigo/fieldkit/internal/adapters/postgres"
	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/ports"
	"github.com/irrigo/fieldkit/internal/core/usecases"
	"github.com/irrigo/fieldkit/internal/pkg/config"
	"github.com/irrigo/fieldkit/internal/pkg/logging"
	"github.com/irrigo/fieldkit/internal/pkg/telemetry"
	"github.com/irrigo/fieldkit/internal/workflows"
)

func main() {
	cfg, err := config.Load("fieldkit-auditor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("fieldkit-auditor", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Encoding)
		if err != nil {
			slog.Warn("nats unavailable, audit reports will not be published", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	audits := usecases.NewAuditService(postgres.NewFarmRepo(db), postgres.NewPlotRepo(db), publisher)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.BoundaryAuditWorkflow)
	w.RegisterActivity(&workflows.AuditActivities{Audits: audits})

	// Every boundary change schedules an audit of its farm.
	if cfg.NATS.URL != "" {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable, audits run on demand only", "error", err)
		} else {
			defer sub.Close()
			err = sub.SubscribeBoundaryEvents(ctx, "fieldkit-auditor", func(ctx context.Context, ev *domain.BoundaryEvent) error {
				return scheduleAudit(ctx, c, cfg.Temporal.TaskQueue, ev)
			})
			if err != nil {
				log.Fatalf("subscribe boundary events: %v", err)
			}
		}
	}

	slog.Info("auditor worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// scheduleAudit starts the audit workflow of the event's farm. A running
// audit of the same farm is reused.
func scheduleAudit(ctx context.Context, c client.Client, taskQueue string, ev *domain.BoundaryEvent) error {
	if ev.Type == "farm.deleted" || ev.FarmID == "" {
		return nil
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(ev.FarmID),
		TaskQueue: taskQueue,
	}, workflows.BoundaryAuditWorkflow, ev.FarmID)
	if err != nil {
		return err
	}
	slog.Info("audit scheduled", "farm_id", ev.FarmID, "event", ev.Type, "run_id", run.GetRunID())
	return nil
}
