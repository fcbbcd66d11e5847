package usecases_test

import (
	"context"
	"math"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// --- Mock FarmRepository ---

type mockFarmRepo struct {
	createFn         func(ctx context.Context, farm *domain.Farm) error
	updateFn         func(ctx context.Context, farm *domain.Farm) error
	getByIDFn        func(ctx context.Context, id string) (*domain.Farm, error)
	listByTenantFn   func(ctx context.Context, tenantID string) ([]domain.Farm, error)
	deleteFn         func(ctx context.Context, id string) error
	findCandidatesFn func(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error)
}

func (m *mockFarmRepo) Create(ctx context.Context, farm *domain.Farm) error {
	if m.createFn != nil {
		return m.createFn(ctx, farm)
	}
	return nil
}

func (m *mockFarmRepo) Update(ctx context.Context, farm *domain.Farm) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, farm)
	}
	return nil
}

func (m *mockFarmRepo) GetByID(ctx context.Context, id string) (*domain.Farm, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockFarmRepo) ListByTenant(ctx context.Context, tenantID string) ([]domain.Farm, error) {
	if m.listByTenantFn != nil {
		return m.listByTenantFn(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockFarmRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockFarmRepo) FindCandidates(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error) {
	if m.findCandidatesFn != nil {
		return m.findCandidatesFn(ctx, tenantID, p)
	}
	return nil, nil
}

// --- Mock PlotRepository ---

type mockPlotRepo struct {
	createFn     func(ctx context.Context, plot *domain.Plot) error
	updateFn     func(ctx context.Context, plot *domain.Plot) error
	getByIDFn    func(ctx context.Context, id string) (*domain.Plot, error)
	listByFarmFn func(ctx context.Context, farmID string) ([]domain.Plot, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (m *mockPlotRepo) Create(ctx context.Context, plot *domain.Plot) error {
	if m.createFn != nil {
		return m.createFn(ctx, plot)
	}
	return nil
}

func (m *mockPlotRepo) Update(ctx context.Context, plot *domain.Plot) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, plot)
	}
	return nil
}

func (m *mockPlotRepo) GetByID(ctx context.Context, id string) (*domain.Plot, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlotRepo) ListByFarm(ctx context.Context, farmID string) ([]domain.Plot, error) {
	if m.listByFarmFn != nil {
		return m.listByFarmFn(ctx, farmID)
	}
	return nil, nil
}

func (m *mockPlotRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events  []domain.BoundaryEvent
	reports []domain.AuditReport
}

func (m *mockPublisher) PublishBoundaryEvent(ctx context.Context, event *domain.BoundaryEvent) error {
	m.events = append(m.events, *event)
	return nil
}

func (m *mockPublisher) PublishAuditReport(ctx context.Context, report *domain.AuditReport) error {
	m.reports = append(m.reports, *report)
	return nil
}

// --- Fixtures ---

// square returns a square ring of side 2*half degrees around (lat, lng).
func square(lat, lng, half float64) domain.BoundaryRing {
	return domain.BoundaryRing{
		{Lat: lat - half, Lng: lng - half},
		{Lat: lat - half, Lng: lng + half},
		{Lat: lat + half, Lng: lng + half},
		{Lat: lat + half, Lng: lng - half},
	}
}

// circle approximates a circle of radius meters with n vertices.
func circle(center domain.GeoPoint, radius float64, n int) domain.BoundaryRing {
	const metersPerDegree = 111320.0
	ring := make(domain.BoundaryRing, n)
	for i := range ring {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring[i] = domain.GeoPoint{
			Lat: center.Lat + radius*math.Sin(a)/metersPerDegree,
			Lng: center.Lng + radius*math.Cos(a)/(metersPerDegree*math.Cos(center.Lat*math.Pi/180)),
		}
	}
	return ring
}

func farmFixture(id, tenantID string, boundary domain.BoundaryRing) *domain.Farm {
	return &domain.Farm{ID: id, TenantID: tenantID, Name: "Fazenda " + id, Boundary: boundary}
}
