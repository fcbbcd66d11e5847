package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	errNotConfigured = errors.New("not configured")
	errDisconnected  = errors.New("disconnected")
)

// dependency is one readiness check. Optional dependencies report their state
// but never fail readiness when they are absent.
type dependency struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		})
	}
}

// ReadyHandler reports whether the boundary store can serve requests. Only the
// database is required; the event stream and the cache degrade gracefully.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := []dependency{
		{name: "database", required: true, check: func(ctx context.Context) error {
			if deps.DB == nil {
				return errNotConfigured
			}
			return deps.DB.Ping(ctx)
		}},
		{name: "nats", check: func(context.Context) error {
			switch {
			case deps.NATS == nil:
				return errNotConfigured
			case !deps.NATS.IsConnected():
				return errDisconnected
			}
			return nil
		}},
		{name: "cache", check: func(ctx context.Context) error {
			if deps.Cache == nil {
				return errNotConfigured
			}
			return deps.Cache.Ping(ctx)
		}},
	}

	draftBackend := "memory"
	if deps.Cache != nil {
		draftBackend = "valkey"
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		status := map[string]string{"drafts": draftBackend}
		ready := true
		for _, p := range checks {
			err := p.check(ctx)
			switch {
			case err == nil:
				status[p.name] = "ok"
			case errors.Is(err, errNotConfigured):
				status[p.name] = err.Error()
				ready = ready && !p.required
			case errors.Is(err, errDisconnected):
				status[p.name] = err.Error()
				ready = false
			default:
				status[p.name] = "error: " + err.Error()
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": status})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": status})
	}
}
