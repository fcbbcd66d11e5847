package domain

import (
	"time"
)

// Farm is the outer boundary owned by a tenant.
type Farm struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Name         string       `json:"name"`
	Boundary     BoundaryRing `json:"boundary"`
	AreaHectares float64      `json:"area_hectares"`
	Centroid     GeoPoint     `json:"centroid"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Plot is an irrigated parcel inside a farm.
type Plot struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	FarmID       string       `json:"farm_id"`
	Name         string       `json:"name"`
	CropType     string       `json:"crop_type,omitempty"`
	Boundary     BoundaryRing `json:"boundary"`
	AreaHectares float64      `json:"area_hectares"`
	Centroid     GeoPoint     `json:"centroid"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DraftKind says what a draft becomes when committed.
type DraftKind string

const (
	DraftFarm DraftKind = "farm"
	DraftPlot DraftKind = "plot"
)

// Draft is a boundary being edited on the map. Version counts saves; stores
// refuse a save based on a stale version.
type Draft struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Kind      DraftKind      `json:"kind"`
	FarmID    string         `json:"farm_id,omitempty"`
	Points    BoundaryRing   `json:"points"`
	Parent    BoundaryRing   `json:"parent,omitempty"`
	History   []BoundaryRing `json:"history,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   int64          `json:"version"`
}

// BoundaryEvent is broadcast whenever a persisted boundary changes.
type BoundaryEvent struct {
	Type         string    `json:"type"` // farm.created | farm.updated | farm.deleted | plot.*
	TenantID     string    `json:"tenant_id"`
	FarmID       string    `json:"farm_id"`
	PlotID       string    `json:"plot_id,omitempty"`
	AreaHectares float64   `json:"area_hectares"`
	Centroid     GeoPoint  `json:"centroid"`
	At           time.Time `json:"at"`
}

// ImportResult is what a spreadsheet import produced.
type ImportResult struct {
	Points       BoundaryRing `json:"points"`
	Rows         int          `json:"rows"`
	Skipped      int          `json:"skipped"`
	Sorted       bool         `json:"sorted"`
	AreaHectares float64      `json:"area_hectares"`
}

// PlotAudit is one line of a boundary audit report.
type PlotAudit struct {
	PlotID         string  `json:"plot_id"`
	StoredArea     float64 `json:"stored_area"`
	ComputedArea   float64 `json:"computed_area"`
	AreaDrift      bool    `json:"area_drift"`
	OutsidePoints  []int   `json:"outside_points,omitempty"`
	IncompleteRing bool    `json:"incomplete_ring,omitempty"`
}

// HasProblem reports whether the audit found anything to fix.
func (a PlotAudit) HasProblem() bool {
	return a.AreaDrift || a.IncompleteRing || len(a.OutsidePoints) > 0
}

// AuditReport summarises a farm's boundary audit.
type AuditReport struct {
	FarmID    string      `json:"farm_id"`
	TenantID  string      `json:"tenant_id"`
	Plots     []PlotAudit `json:"plots"`
	Problems  int         `json:"problems"`
	CheckedAt time.Time   `json:"checked_at"`
}
