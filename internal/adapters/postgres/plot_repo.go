package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// PlotRepo implements ports.PlotRepository with pgx and PostGIS.
type PlotRepo struct {
	db *DB
}

// NewPlotRepo creates a new PlotRepo.
func NewPlotRepo(db *DB) *PlotRepo {
	return &PlotRepo{db: db}
}

const plotColumns = `id, tenant_id, farm_id, name, COALESCE(crop_type, ''), ST_AsGeoJSON(boundary),
	       area_hectares, centroid_lat, centroid_lng, created_at, updated_at`

// Create inserts a plot.
func (r *PlotRepo) Create(ctx context.Context, p *domain.Plot) error {
	boundary, err := ringParam(p.Boundary)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO plots (id, tenant_id, farm_id, name, crop_type, boundary, area_hectares,
		                   centroid_lat, centroid_lng, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), ST_SetSRID(ST_GeomFromGeoJSON($6), 4326), $7, $8, $9, $10, $11)
	`, p.ID, p.TenantID, p.FarmID, p.Name, p.CropType, boundary, p.AreaHectares,
		p.Centroid.Lat, p.Centroid.Lng, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update rewrites a plot's editable fields and geometry.
func (r *PlotRepo) Update(ctx context.Context, p *domain.Plot) error {
	if err := checkID(p.ID); err != nil {
		return err
	}
	boundary, err := ringParam(p.Boundary)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE plots
		SET name = $2, crop_type = NULLIF($3, ''), boundary = ST_SetSRID(ST_GeomFromGeoJSON($4), 4326),
		    area_hectares = $5, centroid_lat = $6, centroid_lng = $7, updated_at = $8
		WHERE id = $1
	`, p.ID, p.Name, p.CropType, boundary, p.AreaHectares, p.Centroid.Lat, p.Centroid.Lng, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a plot by UUID.
func (r *PlotRepo) GetByID(ctx context.Context, id string) (*domain.Plot, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	row := r.db.Pool.QueryRow(ctx, `SELECT `+plotColumns+` FROM plots WHERE id = $1`, id)
	p, err := scanPlot(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListByFarm returns the plots of a farm, by name.
func (r *PlotRepo) ListByFarm(ctx context.Context, farmID string) ([]domain.Plot, error) {
	if err := checkID(farmID); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+plotColumns+`
		FROM plots WHERE farm_id = $1
		ORDER BY name
	`, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plots []domain.Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		plots = append(plots, *p)
	}
	return plots, rows.Err()
}

// Delete removes a plot.
func (r *PlotRepo) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM plots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlot(row pgx.Row) (*domain.Plot, error) {
	var (
		p        domain.Plot
		boundary string
	)
	if err := row.Scan(
		&p.ID, &p.TenantID, &p.FarmID, &p.Name, &p.CropType, &boundary,
		&p.AreaHectares, &p.Centroid.Lat, &p.Centroid.Lng, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ring, err := scanRing(boundary)
	if err != nil {
		return nil, fmt.Errorf("plot %s: %w", p.ID, err)
	}
	p.Boundary = ring
	return &p, nil
}
