package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that the handler left
// without one. Tenant data is private; drafts change on every edit.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"
		case path == "/metrics":
			ttl = "no-cache"
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/drafts"):
			ttl = "no-store"
		case strings.HasSuffix(path, "/geojson"):
			ttl = "private, max-age=300"
		case strings.HasPrefix(path, "/v1/farms/containing"):
			ttl = "private, max-age=30"
		case strings.HasPrefix(path, "/v1/farms"), strings.HasPrefix(path, "/v1/plots"):
			ttl = "private, max-age=60"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=0"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
