package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
)

func TestFarmService_Create(t *testing.T) {
	var saved *domain.Farm
	repo := &mockFarmRepo{
		createFn: func(ctx context.Context, farm *domain.Farm) error {
			saved = farm
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewFarmService(repo, &mockPlotRepo{}, nil, pub)

	boundary := square(0.5, -60, 0.01)
	farm, err := svc.Create(context.Background(), "t1", "Santa Rita", boundary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil || saved.ID != farm.ID {
		t.Fatal("farm was not persisted")
	}
	if farm.AreaHectares <= 0 {
		t.Errorf("expected positive area, got %f", farm.AreaHectares)
	}
	if farm.Centroid.Lat < 0.499 || farm.Centroid.Lat > 0.501 {
		t.Errorf("unexpected centroid %+v", farm.Centroid)
	}
	if len(pub.events) != 1 || pub.events[0].Type != "farm.created" {
		t.Errorf("expected one farm.created event, got %+v", pub.events)
	}

	// the caller's slice must not be aliased
	boundary[0].Lat = 89
	if farm.Boundary[0].Lat == 89 {
		t.Error("farm boundary shares memory with the input")
	}
}

func TestFarmService_Create_IncompleteRing(t *testing.T) {
	svc := usecases.NewFarmService(&mockFarmRepo{}, &mockPlotRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "t1", "Santa Rita", square(0, 0, 1)[:2])
	if !errors.Is(err, domain.ErrIncompleteRing) {
		t.Fatalf("expected ErrIncompleteRing, got %v", err)
	}
}

func TestFarmService_Create_EmptyName(t *testing.T) {
	svc := usecases.NewFarmService(&mockFarmRepo{}, &mockPlotRepo{}, nil, nil)

	if _, err := svc.Create(context.Background(), "t1", "", square(0, 0, 1)); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestFarmService_Get_OtherTenant(t *testing.T) {
	repo := &mockFarmRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Farm, error) {
			return farmFixture(id, "t1", square(0, 0, 1)), nil
		},
	}
	svc := usecases.NewFarmService(repo, &mockPlotRepo{}, nil, nil)

	if _, err := svc.Get(context.Background(), "t2", "f1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	farm, err := svc.Get(context.Background(), "t1", "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if farm.ID != "f1" {
		t.Errorf("expected f1, got %s", farm.ID)
	}
}

func TestFarmService_UpdateBoundary_PlotOutside(t *testing.T) {
	farms := &mockFarmRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Farm, error) {
			return farmFixture(id, "t1", square(0, 0, 1)), nil
		},
		updateFn: func(ctx context.Context, farm *domain.Farm) error {
			t.Error("update must not run when a plot would fall outside")
			return nil
		},
	}
	plots := &mockPlotRepo{
		listByFarmFn: func(ctx context.Context, farmID string) ([]domain.Plot, error) {
			return []domain.Plot{{ID: "p1", Name: "north", Boundary: square(0.8, 0, 0.1)}}, nil
		},
	}
	svc := usecases.NewFarmService(farms, plots, nil, nil)

	_, err := svc.UpdateBoundary(context.Background(), "t1", "f1", square(0, 0, 0.5))
	var oob *domain.OutOfBoundsError
	if !errors.As(err, &oob) {
		t.Fatalf("expected OutOfBoundsError, got %v", err)
	}
	if len(oob.Indexes) != 4 {
		t.Errorf("expected all 4 plot vertices outside, got %v", oob.Indexes)
	}
	if !errors.Is(err, domain.ErrOutOfBounds) {
		t.Error("OutOfBoundsError should unwrap to ErrOutOfBounds")
	}
}

func TestFarmService_UpdateBoundary_Grow(t *testing.T) {
	updated := false
	farms := &mockFarmRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Farm, error) {
			return farmFixture(id, "t1", square(0, 0, 1)), nil
		},
		updateFn: func(ctx context.Context, farm *domain.Farm) error {
			updated = true
			return nil
		},
	}
	plots := &mockPlotRepo{
		listByFarmFn: func(ctx context.Context, farmID string) ([]domain.Plot, error) {
			return []domain.Plot{{ID: "p1", Boundary: square(0.5, 0, 0.1)}}, nil
		},
	}
	svc := usecases.NewFarmService(farms, plots, nil, nil)

	before := farmFixture("f1", "t1", square(0, 0, 1))
	farm, err := svc.UpdateBoundary(context.Background(), "t1", "f1", square(0, 0, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Error("repo update was not called")
	}
	if farm.AreaHectares <= before.AreaHectares {
		t.Errorf("expected larger area, got %f", farm.AreaHectares)
	}
}

func TestFarmService_FindContaining(t *testing.T) {
	repo := &mockFarmRepo{
		findCandidatesFn: func(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error) {
			// both bounding boxes cover the point, only one polygon does
			return []domain.Farm{
				*farmFixture("square", tenantID, square(0, 0, 1)),
				*farmFixture("triangle", tenantID, domain.BoundaryRing{
					{Lat: -1, Lng: -1}, {Lat: -1, Lng: 1}, {Lat: 1, Lng: 1},
				}),
			}, nil
		},
	}
	svc := usecases.NewFarmService(repo, &mockPlotRepo{}, nil, nil)

	farms, err := svc.FindContaining(context.Background(), "t1", domain.GeoPoint{Lat: 0.5, Lng: -0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(farms) != 1 || farms[0].ID != "square" {
		t.Fatalf("expected only the square farm, got %+v", farms)
	}
}
