package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/irrigo/fieldkit/internal/adapters/http"
	"github.com/irrigo/fieldkit/internal/adapters/memory"
	natsadapter "github.com/irrigo/fieldkit/internal/adapters/nats"
	"github.com/irrigo/fieldkit/internal/adapters/postgres"
	"github.com/irrigo/fieldkit/internal/adapters/valkey"
	"github.com/irrigo/fieldkit/internal/core/ports"
	"github.com/irrigo/fieldkit/internal/core/usecases"
	"github.com/irrigo/fieldkit/internal/pkg/config"
	"github.com/irrigo/fieldkit/internal/pkg/logging"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
	"github.com/irrigo/fieldkit/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fieldkit-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("fieldkit-api", cfg.Log.Level, cfg.Log.Format)

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
	go reportPoolStats(ctx, db)

	// Valkey backs both the farm cache and the draft store. Without it
	// drafts live in process memory and do not survive a restart.
	var (
		cache    *valkey.Cache
		cacheSvc ports.CacheService
		drafts   ports.DraftStore
	)
	if cfg.Valkey.Addr != "" {
		cache, err = valkey.New(ctx, valkey.Options{
			Addr:     cfg.Valkey.Addr,
			Password: cfg.Valkey.Password,
			DB:       cfg.Valkey.DB,
		})
		if err != nil {
			slog.Warn("valkey unavailable, keeping drafts in memory", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			cacheSvc = cache
			drafts = valkey.NewDraftStore(cache, cfg.Geometry.DraftTTLSeconds)
		}
	}
	if drafts == nil {
		drafts = memory.NewDraftStore(time.Duration(cfg.Geometry.DraftTTLSeconds) * time.Second)
	}

	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Encoding)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	// Separate connection for the WebSocket relay
	var deps http.Dependencies
	if cfg.NATS.URL != "" {
		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer nc.Close()
			deps.NATS = nc
		}
	}

	farmRepo := postgres.NewFarmRepo(db)
	plotRepo := postgres.NewPlotRepo(db)

	farmSvc := usecases.NewFarmService(farmRepo, plotRepo, cacheSvc, publisher)
	plotSvc := usecases.NewPlotService(plotRepo, farmRepo, publisher)

	deps.Farms = farmSvc
	deps.Plots = plotSvc
	deps.Drafts = usecases.NewDraftService(drafts, farmSvc, plotSvc, usecases.DraftOptions{
		MaxHistory:    cfg.Geometry.MaxHistory,
		EnforceParent: cfg.Geometry.EnforceParent,
	})
	deps.Imports = usecases.NewImportService(cfg.Geometry.ImportMaxRows)
	deps.DB = db
	deps.Cache = cache
	deps.DocsPath = os.Getenv("FIELDKIT_DOCS_PATH")

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitBytes,
		AppName:      "fieldkit API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + http.TenantHeader,
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, &deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}
