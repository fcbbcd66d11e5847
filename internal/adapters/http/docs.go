package http

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultDocsPath = "api/openapi.yaml"
	docsURL         = "/docs/openapi.yaml"
)

// swaggerPage renders Swagger UI pointed at the served OpenAPI document.
func swaggerPage() string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>fieldkit API %s</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: %q, dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`, Version, docsURL)
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI document read from
// path at /docs/openapi.yaml. The file is re-read per request so edits show up
// without a restart.
func SetupDocs(app *fiber.App, path string) {
	if path == "" {
		path = defaultDocsPath
	}
	page := swaggerPage()

	docs := app.Group("/docs")
	docs.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(page)
	})
	docs.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errNotFound(c, "OpenAPI document not available")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
