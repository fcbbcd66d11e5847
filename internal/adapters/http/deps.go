package http

import (
	"github.com/nats-io/nats.go"

	"github.com/irrigo/fieldkit/internal/adapters/postgres"
	"github.com/irrigo/fieldkit/internal/adapters/valkey"
	"github.com/irrigo/fieldkit/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. Infrastructure
// handles may be nil; readiness reports them as not configured.
type Dependencies struct {
	Farms   *usecases.FarmService
	Plots   *usecases.PlotService
	Drafts  *usecases.DraftService
	Imports *usecases.ImportService
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache

	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}
