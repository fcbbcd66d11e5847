package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

const routeTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 300 requests per minute per IP; map editors send one request per click
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Stateless geometry, no tenant needed
	geo := app.Group("/v1/geometry")
	geo.Post("/validate", ValidateHandler())
	geo.Post("/area", AreaHandler())
	geo.Post("/contains", ContainsHandler())
	geo.Post("/centroid", CentroidHandler())
	geo.Post("/sort", SortHandler())
	geo.Post("/summary", SummaryHandler())

	v1 := app.Group("/v1", TenantMiddleware())
	with := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, routeTimeout)
	}

	v1.Post("/drafts", with(CreateDraftHandler(deps)))
	v1.Get("/drafts/:id", with(GetDraftHandler(deps)))
	v1.Delete("/drafts/:id", with(DiscardDraftHandler(deps)))
	v1.Post("/drafts/:id/points", with(AppendPointHandler(deps)))
	v1.Put("/drafts/:id/points", with(ReplacePointsHandler(deps)))
	v1.Put("/drafts/:id/points/:index", with(MovePointHandler(deps)))
	v1.Delete("/drafts/:id/points/:index", with(RemovePointHandler(deps)))
	v1.Post("/drafts/:id/undo", with(UndoHandler(deps)))
	v1.Post("/drafts/:id/import", with(ImportPointsHandler(deps)))
	v1.Post("/drafts/:id/commit", with(CommitDraftHandler(deps)))

	v1.Get("/farms", with(ListFarmsHandler(deps)))
	v1.Post("/farms", with(CreateFarmHandler(deps)))
	v1.Get("/farms/containing", with(FarmsContainingHandler(deps)))
	v1.Get("/farms/:id", with(GetFarmHandler(deps)))
	v1.Delete("/farms/:id", with(DeleteFarmHandler(deps)))
	v1.Put("/farms/:id/boundary", with(UpdateFarmBoundaryHandler(deps)))
	v1.Get("/farms/:id/geojson", with(FarmGeoJSONHandler(deps)))
	v1.Get("/farms/:id/plots", with(ListPlotsHandler(deps)))
	v1.Post("/farms/:id/plots", with(CreatePlotHandler(deps)))

	v1.Get("/plots/:id", with(GetPlotHandler(deps)))
	v1.Delete("/plots/:id", with(DeletePlotHandler(deps)))
	v1.Put("/plots/:id/boundary", with(UpdatePlotBoundaryHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.DocsPath)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
