package ports

import (
	"context"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishBoundaryEvent(ctx context.Context, event *domain.BoundaryEvent) error
	PublishAuditReport(ctx context.Context, report *domain.AuditReport) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
