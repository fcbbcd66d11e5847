package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/irrigo/fieldkit/internal/adapters/nats"
)

// TenantHeader carries the tenant every farm, plot and draft belongs to.
const TenantHeader = "X-Tenant-ID"

const tenantKey = "tenant"

// TenantMiddleware rejects requests without a tenant header and stores the
// tenant in the request locals.
func TenantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenant := strings.TrimSpace(c.Get(TenantHeader))
		if tenant == "" {
			return errBadRequest(c, TenantHeader+" header is required")
		}
		if len(tenant) > 128 {
			return errBadRequest(c, TenantHeader+" too long (max 128 characters)")
		}
		if !natsadapter.ValidToken(tenant) {
			return errBadRequest(c, TenantHeader+" must not contain '.', '*', '>' or whitespace")
		}
		c.Locals(tenantKey, tenant)
		return c.Next()
	}
}

func tenantID(c *fiber.Ctx) string {
	t, _ := c.Locals(tenantKey).(string)
	return t
}
