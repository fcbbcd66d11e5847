package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// FarmRepo implements ports.FarmRepository with pgx and PostGIS.
type FarmRepo struct {
	db *DB
}

// NewFarmRepo creates a new FarmRepo.
func NewFarmRepo(db *DB) *FarmRepo {
	return &FarmRepo{db: db}
}

const farmColumns = `id, tenant_id, name, ST_AsGeoJSON(boundary), area_hectares,
	       centroid_lat, centroid_lng, created_at, updated_at`

// Create inserts a farm.
func (r *FarmRepo) Create(ctx context.Context, f *domain.Farm) error {
	boundary, err := ringParam(f.Boundary)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO farms (id, tenant_id, name, boundary, area_hectares, centroid_lat, centroid_lng, created_at, updated_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), $5, $6, $7, $8, $9)
	`, f.ID, f.TenantID, f.Name, boundary, f.AreaHectares,
		f.Centroid.Lat, f.Centroid.Lng, f.CreatedAt, f.UpdatedAt)
	return err
}

// Update rewrites a farm's name and geometry.
func (r *FarmRepo) Update(ctx context.Context, f *domain.Farm) error {
	if err := checkID(f.ID); err != nil {
		return err
	}
	boundary, err := ringParam(f.Boundary)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE farms
		SET name = $2, boundary = ST_SetSRID(ST_GeomFromGeoJSON($3), 4326),
		    area_hectares = $4, centroid_lat = $5, centroid_lng = $6, updated_at = $7
		WHERE id = $1
	`, f.ID, f.Name, boundary, f.AreaHectares, f.Centroid.Lat, f.Centroid.Lng, f.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a farm by UUID.
func (r *FarmRepo) GetByID(ctx context.Context, id string) (*domain.Farm, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	row := r.db.Pool.QueryRow(ctx, `SELECT `+farmColumns+` FROM farms WHERE id = $1`, id)
	f, err := scanFarm(row)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// ListByTenant returns all farms of a tenant, by name.
func (r *FarmRepo) ListByTenant(ctx context.Context, tenantID string) ([]domain.Farm, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+farmColumns+`
		FROM farms WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectFarms(rows)
}

// Delete removes a farm and, through the foreign key, its plots.
func (r *FarmRepo) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM farms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindCandidates returns the tenant's farms whose bounding box covers p,
// using the GiST index on boundary.
func (r *FarmRepo) FindCandidates(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+farmColumns+`
		FROM farms
		WHERE tenant_id = $1
		  AND boundary && ST_SetSRID(ST_MakePoint($2, $3), 4326)
		ORDER BY area_hectares
	`, tenantID, p.Lng, p.Lat)
	if err != nil {
		return nil, err
	}
	return collectFarms(rows)
}

func scanFarm(row pgx.Row) (*domain.Farm, error) {
	var (
		f        domain.Farm
		boundary string
	)
	if err := row.Scan(
		&f.ID, &f.TenantID, &f.Name, &boundary, &f.AreaHectares,
		&f.Centroid.Lat, &f.Centroid.Lng, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ring, err := scanRing(boundary)
	if err != nil {
		return nil, fmt.Errorf("farm %s: %w", f.ID, err)
	}
	f.Boundary = ring
	return &f, nil
}

func collectFarms(rows pgx.Rows) ([]domain.Farm, error) {
	defer rows.Close()

	var farms []domain.Farm
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		farms = append(farms, *f)
	}
	return farms, rows.Err()
}
