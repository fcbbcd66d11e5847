package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
)

func farmRepoWith(farm *domain.Farm) *mockFarmRepo {
	return &mockFarmRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Farm, error) {
			if id != farm.ID {
				return nil, domain.ErrNotFound
			}
			f := *farm
			return &f, nil
		},
	}
}

func TestPlotService_Create(t *testing.T) {
	farm := farmFixture("f1", "t1", square(0, 0, 1))
	created := false
	plots := &mockPlotRepo{
		createFn: func(ctx context.Context, plot *domain.Plot) error {
			created = true
			if plot.FarmID != "f1" {
				t.Errorf("expected farm f1, got %s", plot.FarmID)
			}
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewPlotService(plots, farmRepoWith(farm), pub)

	plot, err := svc.Create(context.Background(), "t1", "f1", usecases.PlotInput{
		Name:     "soy north",
		CropType: "soy",
		Boundary: square(0.5, 0, 0.2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("plot was not persisted")
	}
	if plot.AreaHectares <= 0 {
		t.Errorf("expected positive area, got %f", plot.AreaHectares)
	}
	if len(pub.events) != 1 || pub.events[0].PlotID != plot.ID {
		t.Errorf("expected plot.created event, got %+v", pub.events)
	}
}

func TestPlotService_Create_OutOfBounds(t *testing.T) {
	farm := farmFixture("f1", "t1", square(0, 0, 1))
	plots := &mockPlotRepo{
		createFn: func(ctx context.Context, plot *domain.Plot) error {
			t.Error("plot outside the farm must not be persisted")
			return nil
		},
	}
	svc := usecases.NewPlotService(plots, farmRepoWith(farm), nil)

	boundary := domain.BoundaryRing{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.5},
		{Lat: 1.5, Lng: 0.5}, // outside
		{Lat: 0.5, Lng: 0},
	}
	_, err := svc.Create(context.Background(), "t1", "f1", usecases.PlotInput{Name: "east", Boundary: boundary})
	if !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	var oob *domain.OutOfBoundsError
	if !errors.As(err, &oob) || len(oob.Indexes) != 1 || oob.Indexes[0] != 2 {
		t.Errorf("expected offending index 2, got %v", err)
	}
}

func TestPlotService_Create_OtherTenantFarm(t *testing.T) {
	farm := farmFixture("f1", "t1", square(0, 0, 1))
	svc := usecases.NewPlotService(&mockPlotRepo{}, farmRepoWith(farm), nil)

	_, err := svc.Create(context.Background(), "t2", "f1", usecases.PlotInput{Name: "x", Boundary: square(0, 0, 0.1)})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlotService_UpdateBoundary(t *testing.T) {
	farm := farmFixture("f1", "t1", square(0, 0, 1))
	plots := &mockPlotRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Plot, error) {
			return &domain.Plot{ID: id, TenantID: "t1", FarmID: "f1", Boundary: square(0, 0, 0.1)}, nil
		},
	}
	svc := usecases.NewPlotService(plots, farmRepoWith(farm), nil)

	plot, err := svc.UpdateBoundary(context.Background(), "t1", "p1", square(0.2, 0.2, 0.3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plot.Centroid.Lat < 0.19 || plot.Centroid.Lat > 0.21 {
		t.Errorf("unexpected centroid %+v", plot.Centroid)
	}

	if _, err := svc.UpdateBoundary(context.Background(), "t1", "p1", square(0.9, 0, 0.3)); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}
