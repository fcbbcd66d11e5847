package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/irrigo/fieldkit/internal/adapters/http"
	"github.com/irrigo/fieldkit/internal/adapters/memory"
	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
)

// ---- In-memory repositories ----

type farmRepo struct {
	mu    sync.Mutex
	farms map[string]domain.Farm
	order []string
}

func newFarmRepo(seed ...domain.Farm) *farmRepo {
	r := &farmRepo{farms: make(map[string]domain.Farm)}
	for _, f := range seed {
		r.farms[f.ID] = f
		r.order = append(r.order, f.ID)
	}
	return r
}

func (r *farmRepo) Create(ctx context.Context, f *domain.Farm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.farms[f.ID] = *f
	r.order = append(r.order, f.ID)
	return nil
}
func (r *farmRepo) Update(ctx context.Context, f *domain.Farm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.farms[f.ID]; !ok {
		return domain.ErrNotFound
	}
	r.farms[f.ID] = *f
	return nil
}
func (r *farmRepo) GetByID(ctx context.Context, id string) (*domain.Farm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.farms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}
func (r *farmRepo) ListByTenant(ctx context.Context, tenantID string) ([]domain.Farm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Farm
	for _, id := range r.order {
		if f, ok := r.farms[id]; ok && f.TenantID == tenantID {
			out = append(out, f)
		}
	}
	return out, nil
}
func (r *farmRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.farms[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.farms, id)
	return nil
}
func (r *farmRepo) FindCandidates(ctx context.Context, tenantID string, p domain.GeoPoint) ([]domain.Farm, error) {
	farms, _ := r.ListByTenant(ctx, tenantID)
	var out []domain.Farm
	for _, f := range farms {
		b := geospatial.BoundsOf(f.Boundary)
		if b != nil && p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng {
			out = append(out, f)
		}
	}
	return out, nil
}

type plotRepo struct {
	mu    sync.Mutex
	plots map[string]domain.Plot
}

func newPlotRepo() *plotRepo { return &plotRepo{plots: make(map[string]domain.Plot)} }

func (r *plotRepo) Create(ctx context.Context, p *domain.Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plots[p.ID] = *p
	return nil
}
func (r *plotRepo) Update(ctx context.Context, p *domain.Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plots[p.ID] = *p
	return nil
}
func (r *plotRepo) GetByID(ctx context.Context, id string) (*domain.Plot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}
func (r *plotRepo) ListByFarm(ctx context.Context, farmID string) ([]domain.Plot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plot
	for _, p := range r.plots {
		if p.FarmID == farmID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (r *plotRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plots, id)
	return nil
}

// ---- Test helpers ----

const tenant = "acme"

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(farms ...domain.Farm) *handler.Dependencies {
	farmRepo, plotRepo := newFarmRepo(farms...), newPlotRepo()
	farmSvc := usecases.NewFarmService(farmRepo, plotRepo, nil, nil)
	plotSvc := usecases.NewPlotService(plotRepo, farmRepo, nil)
	return &handler.Dependencies{
		Farms: farmSvc,
		Plots: plotSvc,
		Drafts: usecases.NewDraftService(memory.NewDraftStore(time.Hour), farmSvc, plotSvc, usecases.DraftOptions{
			MaxHistory:    10,
			EnforceParent: true,
		}),
		Imports: usecases.NewImportService(100),
	}
}

// square is a ring of four corners around (lat, lng).
func square(lat, lng, half float64) domain.BoundaryRing {
	return domain.BoundaryRing{
		{Lat: lat - half, Lng: lng - half},
		{Lat: lat - half, Lng: lng + half},
		{Lat: lat + half, Lng: lng + half},
		{Lat: lat + half, Lng: lng - half},
	}
}

func farmFixture(id, tenantID string) domain.Farm {
	ring := square(-23.5, -46.6, 0.01)
	return domain.Farm{
		ID:           id,
		TenantID:     tenantID,
		Name:         "Farm " + id,
		Boundary:     ring,
		AreaHectares: geospatial.Area(ring),
		Centroid:     geospatial.Centroid(ring),
	}
}

func request(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(handler.TenantHeader, tenant)
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request, wantStatus int, out any) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", req.Method, req.URL.Path, wantStatus, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Indexes []int  `json:"indexes"`
}

type draftBody struct {
	ID      string             `json:"id"`
	Kind    string             `json:"kind"`
	FarmID  string             `json:"farm_id"`
	Points  []domain.GeoPoint  `json:"points"`
	CanUndo bool               `json:"can_undo"`
	Summary domain.RingSummary `json:"summary"`
}

// ---- Health ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	var result map[string]interface{}
	do(t, app, httptest.NewRequest("GET", "/v1/health", nil), 200, &result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps())

	// DB, NATS and cache are nil
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/health", nil), 200, nil)
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// ---- Tenant ----

func TestTenantHeaderRequired(t *testing.T) {
	app := setupApp(makeDeps())

	var apiErr apiError
	do(t, app, httptest.NewRequest("GET", "/v1/farms", nil), 400, &apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", apiErr.Code)
	}
}

func TestTenantHeaderRejectsSubjectWildcards(t *testing.T) {
	app := setupApp(makeDeps())

	for _, tenant := range []string{"acme.br", "acme*", "acme>", "acme br"} {
		req := httptest.NewRequest("GET", "/v1/farms", nil)
		req.Header.Set(handler.TenantHeader, tenant)

		var apiErr apiError
		do(t, app, req, 400, &apiErr)
		if apiErr.Code != "bad_request" {
			t.Errorf("%q: expected bad_request, got %s", tenant, apiErr.Code)
		}
	}

	req := httptest.NewRequest("GET", "/v1/farms", nil)
	req.Header.Set(handler.TenantHeader, "acme_br")
	do(t, app, req, 200, nil)
}

func TestGetFarm_OtherTenantIsNotFound(t *testing.T) {
	app := setupApp(makeDeps(farmFixture("f1", "someone-else")))

	var apiErr apiError
	do(t, app, request("GET", "/v1/farms/f1", nil), 404, &apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

// ---- Farms ----

func TestCreateFarm_Success(t *testing.T) {
	app := setupApp(makeDeps())

	var farm domain.Farm
	do(t, app, request("POST", "/v1/farms", map[string]any{
		"name": "Fazenda Boa Vista",
		"boundary": []any{
			map[string]any{"lat": -23.51, "lng": -46.61},
			map[string]any{"latitude": "-23.51", "longitude": "-46.59"},
			map[string]any{"lat": -23.49, "lng": -46.59},
			map[string]any{"lat": "-23.49", "lng": "-46.61"},
		},
	}), 201, &farm)

	if farm.ID == "" {
		t.Fatal("expected an ID")
	}
	if len(farm.Boundary) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(farm.Boundary))
	}
	if farm.AreaHectares <= 0 {
		t.Errorf("expected a positive area, got %f", farm.AreaHectares)
	}
}

func TestCreateFarm_InvalidCoordinate(t *testing.T) {
	app := setupApp(makeDeps())

	var apiErr apiError
	do(t, app, request("POST", "/v1/farms", map[string]any{
		"name": "Bad",
		"boundary": []any{
			map[string]any{"lat": -23.51, "lng": -46.61},
			map[string]any{"lat": 95, "lng": -46.59},
			map[string]any{"lat": -23.49, "lng": -46.59},
		},
	}), 422, &apiErr)
	if apiErr.Code != "invalid_coordinate" {
		t.Errorf("expected invalid_coordinate, got %s", apiErr.Code)
	}
}

func TestCreateFarm_IncompleteRing(t *testing.T) {
	app := setupApp(makeDeps())

	var apiErr apiError
	do(t, app, request("POST", "/v1/farms", map[string]any{
		"name":     "Two points",
		"boundary": []any{map[string]any{"lat": 1, "lng": 1}, map[string]any{"lat": 2, "lng": 2}},
	}), 422, &apiErr)
	if apiErr.Code != "incomplete_ring" {
		t.Errorf("expected incomplete_ring, got %s", apiErr.Code)
	}
}

func TestCreateFarm_MalformedBody(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/farms", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.TenantHeader, tenant)
	do(t, app, req, 400, nil)
}

func TestListFarms_Pagination(t *testing.T) {
	var farms []domain.Farm
	for i := 0; i < 5; i++ {
		farms = append(farms, farmFixture(fmt.Sprintf("f%d", i), tenant))
	}
	farms = append(farms, farmFixture("other", "someone-else"))
	app := setupApp(makeDeps(farms...))

	var result struct {
		Data       []domain.Farm `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	resp := do(t, app, request("GET", "/v1/farms?offset=2&limit=2", nil), 200, &result)

	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 || result.Data[0].ID != "f2" {
		t.Errorf("expected f2 and f3, got %+v", result.Data)
	}
	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header, got %s", rel, link)
		}
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, max-age=60" {
		t.Errorf("expected private Cache-Control, got %q", cc)
	}
}

func TestFarmsContaining(t *testing.T) {
	far := farmFixture("far", tenant)
	far.Boundary = square(10, 10, 0.01)
	app := setupApp(makeDeps(farmFixture("near", tenant), far))

	var farms []domain.Farm
	do(t, app, request("GET", "/v1/farms/containing?lat=-23.5&lng=-46.6", nil), 200, &farms)
	if len(farms) != 1 || farms[0].ID != "near" {
		t.Errorf("expected only the near farm, got %+v", farms)
	}

	do(t, app, request("GET", "/v1/farms/containing?lat=abc&lng=-46.6", nil), 400, nil)
}

func TestFarmGeoJSON(t *testing.T) {
	app := setupApp(makeDeps(farmFixture("f1", tenant)))

	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	resp := do(t, app, request("GET", "/v1/farms/f1/geojson", nil), 200, &feature)

	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected application/geo+json, got %q", ct)
	}
	if feature.Type != "Feature" || feature.Geometry.Type != "Polygon" {
		t.Fatalf("unexpected feature %+v", feature)
	}
	// closed ring: four vertices plus the repeated first one
	if n := len(feature.Geometry.Coordinates[0]); n != 5 {
		t.Errorf("expected 5 positions, got %d", n)
	}
	if feature.Properties["name"] != "Farm f1" {
		t.Errorf("expected name property, got %v", feature.Properties["name"])
	}
}

func TestDeleteFarm(t *testing.T) {
	app := setupApp(makeDeps(farmFixture("f1", tenant)))

	do(t, app, request("DELETE", "/v1/farms/f1", nil), 204, nil)
	do(t, app, request("GET", "/v1/farms/f1", nil), 404, nil)
}

// ---- Plots ----

func TestCreatePlot_OutsideFarm(t *testing.T) {
	app := setupApp(makeDeps(farmFixture("f1", tenant)))

	inside := square(-23.5, -46.6, 0.005)
	outside := inside.Clone()
	outside[2] = domain.GeoPoint{Lat: -23.0, Lng: -46.0}

	var plot domain.Plot
	do(t, app, request("POST", "/v1/farms/f1/plots", map[string]any{
		"name": "Talhão 1", "crop_type": "coffee", "boundary": inside,
	}), 201, &plot)
	if plot.FarmID != "f1" || plot.CropType != "coffee" {
		t.Errorf("unexpected plot %+v", plot)
	}

	var apiErr apiError
	do(t, app, request("POST", "/v1/farms/f1/plots", map[string]any{
		"name": "Talhão 2", "boundary": outside,
	}), 422, &apiErr)
	if apiErr.Code != "out_of_bounds" {
		t.Fatalf("expected out_of_bounds, got %s", apiErr.Code)
	}
	if len(apiErr.Indexes) != 1 || apiErr.Indexes[0] != 2 {
		t.Errorf("expected index 2, got %v", apiErr.Indexes)
	}

	var page struct {
		Data []domain.Plot `json:"data"`
	}
	do(t, app, request("GET", "/v1/farms/f1/plots", nil), 200, &page)
	if len(page.Data) != 1 {
		t.Errorf("expected 1 plot, got %d", len(page.Data))
	}
}

// ---- Drafts ----

func TestDraft_EditUndoCommit(t *testing.T) {
	app := setupApp(makeDeps())

	var d draftBody
	do(t, app, request("POST", "/v1/drafts", map[string]any{"kind": "farm"}), 201, &d)

	for _, p := range square(-23.5, -46.6, 0.01) {
		do(t, app, request("POST", "/v1/drafts/"+d.ID+"/points", p), 200, &d)
	}
	if !d.Summary.Complete || d.Summary.Points != 4 {
		t.Fatalf("expected a complete 4-point ring, got %+v", d.Summary)
	}

	do(t, app, request("PUT", "/v1/drafts/"+d.ID+"/points/0", map[string]any{"latitude": "-23.52", "longitude": "-46.61"}), 200, &d)
	if d.Points[0].Lat != -23.52 {
		t.Errorf("expected moved vertex, got %+v", d.Points[0])
	}

	do(t, app, request("POST", "/v1/drafts/"+d.ID+"/undo", nil), 200, &d)
	if d.Points[0].Lat != -23.51 {
		t.Errorf("expected undo to restore -23.51, got %+v", d.Points[0])
	}

	var apiErr apiError
	do(t, app, request("DELETE", "/v1/drafts/"+d.ID+"/points/9", nil), 400, &apiErr)

	var res usecases.CommitResult
	do(t, app, request("POST", "/v1/drafts/"+d.ID+"/commit", map[string]any{"name": "Drawn"}), 201, &res)
	if res.Farm == nil || res.Farm.Name != "Drawn" || res.Farm.AreaHectares <= 0 {
		t.Fatalf("unexpected commit result %+v", res)
	}

	// committed drafts are gone
	do(t, app, request("GET", "/v1/drafts/"+d.ID, nil), 404, nil)
}

func TestDraft_RejectsPointOutsideFarm(t *testing.T) {
	app := setupApp(makeDeps(farmFixture("f1", tenant)))

	var d draftBody
	do(t, app, request("POST", "/v1/drafts", map[string]any{"kind": "plot", "farm_id": "f1"}), 201, &d)
	do(t, app, request("POST", "/v1/drafts/"+d.ID+"/points", map[string]any{"lat": -23.5, "lng": -46.6}), 200, &d)

	var apiErr apiError
	do(t, app, request("POST", "/v1/drafts/"+d.ID+"/points", map[string]any{"lat": -23.0, "lng": -46.0}), 422, &apiErr)
	if apiErr.Code != "out_of_bounds" || len(apiErr.Indexes) != 1 || apiErr.Indexes[0] != 1 {
		t.Errorf("expected out_of_bounds at index 1, got %+v", apiErr)
	}

	// the rejected point left the draft untouched
	resp := do(t, app, request("GET", "/v1/drafts/"+d.ID, nil), 200, &d)
	if len(d.Points) != 1 {
		t.Errorf("expected 1 point, got %d", len(d.Points))
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store on drafts, got %q", cc)
	}
}

func TestDraft_InvalidCoordinate(t *testing.T) {
	app := setupApp(makeDeps())

	var d draftBody
	do(t, app, request("POST", "/v1/drafts", map[string]any{}), 201, &d)

	var apiErr apiError
	do(t, app, request("POST", "/v1/drafts/"+d.ID+"/points", map[string]any{"lat": "north", "lng": 1}), 422, &apiErr)
	if apiErr.Code != "invalid_coordinate" {
		t.Errorf("expected invalid_coordinate, got %s", apiErr.Code)
	}
}

func TestDraft_ReplaceSkipsInvalid(t *testing.T) {
	app := setupApp(makeDeps())

	var d draftBody
	do(t, app, request("POST", "/v1/drafts", map[string]any{"kind": "farm"}), 201, &d)

	var res struct {
		Draft   draftBody `json:"draft"`
		Skipped int       `json:"skipped"`
	}
	do(t, app, request("PUT", "/v1/drafts/"+d.ID+"/points", map[string]any{
		"sort": true,
		"points": []any{
			map[string]any{"lat": 1, "lng": 1},
			map[string]any{"lat": 0, "lng": 0},
			map[string]any{"lat": "x", "lng": 0},
			map[string]any{"lat": 0, "lng": 1},
			map[string]any{"lat": 1, "lng": 0},
		},
	}), 200, &res)

	if res.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", res.Skipped)
	}
	if len(res.Draft.Points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(res.Draft.Points))
	}
	// sorted counter-clockwise from the west: no self-intersection, so the
	// area is that of the full square
	want := geospatial.Area(square(0.5, 0.5, 0.5))
	if diff := res.Draft.Summary.AreaHectares - want; diff > 1 || diff < -1 {
		t.Errorf("expected area %.1f, got %.1f", want, res.Draft.Summary.AreaHectares)
	}
}

func TestDraft_OtherTenantIsNotFound(t *testing.T) {
	app := setupApp(makeDeps())

	var d draftBody
	do(t, app, request("POST", "/v1/drafts", map[string]any{"kind": "farm"}), 201, &d)

	req := request("GET", "/v1/drafts/"+d.ID, nil)
	req.Header.Set(handler.TenantHeader, "intruder")
	do(t, app, req, 404, nil)
}

func TestDraft_ImportCSV(t *testing.T) {
	app := setupApp(makeDeps())

	var d draftBody
	do(t, app, request("POST", "/v1/drafts", map[string]any{"kind": "farm"}), 201, &d)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pivot.csv")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, "lng,lat\n-46.61,-23.51\n-46.59,-23.49\n-46.59,-23.51\nbad,row\n-46.61,-23.49\n")
	mw.Close()

	req := httptest.NewRequest("POST", "/v1/drafts/"+d.ID+"/import?sort=true", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(handler.TenantHeader, tenant)

	var res struct {
		Draft  draftBody           `json:"draft"`
		Import domain.ImportResult `json:"import"`
	}
	do(t, app, req, 200, &res)

	if res.Import.Rows != 5 || res.Import.Skipped != 1 || !res.Import.Sorted {
		t.Errorf("unexpected import result %+v", res.Import)
	}
	if len(res.Draft.Points) != 4 || !res.Draft.CanUndo {
		t.Errorf("expected 4 undoable points, got %+v", res.Draft)
	}
}

// ---- Stateless geometry ----

func TestGeometry_Validate(t *testing.T) {
	app := setupApp(makeDeps())

	var res struct {
		Valid bool            `json:"valid"`
		Point domain.GeoPoint `json:"point"`
	}
	do(t, app, request("POST", "/v1/geometry/validate", map[string]any{
		"point": map[string]any{"latitude": " 40.5 ", "longitude": "-3.7"},
	}), 200, &res)
	if !res.Valid || res.Point.Lat != 40.5 || res.Point.Lng != -3.7 {
		t.Errorf("unexpected result %+v", res)
	}

	res.Valid = true
	do(t, app, request("POST", "/v1/geometry/validate", map[string]any{
		"point": map[string]any{"lat": 10, "lng": 181},
	}), 200, &res)
	if res.Valid {
		t.Error("expected longitude 181 to be invalid")
	}
}

func TestGeometry_AreaAndContains(t *testing.T) {
	app := setupApp(makeDeps())
	ring := square(-23.5, -46.6, 0.01)

	var area struct {
		AreaHectares float64 `json:"area_hectares"`
		Points       int     `json:"points"`
	}
	do(t, app, request("POST", "/v1/geometry/area", map[string]any{"ring": ring}), 200, &area)
	if area.Points != 4 || area.AreaHectares != geospatial.Area(ring) {
		t.Errorf("unexpected area %+v", area)
	}

	var in struct {
		Inside bool `json:"inside"`
	}
	do(t, app, request("POST", "/v1/geometry/contains", map[string]any{
		"point": map[string]any{"lat": -23.5, "lng": -46.6},
		"ring":  ring,
	}), 200, &in)
	if !in.Inside {
		t.Error("expected centre to be inside")
	}

	var apiErr apiError
	do(t, app, request("POST", "/v1/geometry/contains", map[string]any{
		"point": map[string]any{"lat": -23.5, "lng": -46.6},
		"ring":  ring[:2],
	}), 422, &apiErr)
	if apiErr.Code != "incomplete_ring" {
		t.Errorf("expected incomplete_ring, got %s", apiErr.Code)
	}
}

func TestGeometry_Centroid(t *testing.T) {
	app := setupApp(makeDeps())

	var res struct {
		Centroid domain.GeoPoint `json:"centroid"`
	}
	do(t, app, request("POST", "/v1/geometry/centroid", map[string]any{
		"ring": []any{
			map[string]any{"lat": 0, "lng": 0},
			map[string]any{"lat": 0, "lng": 2},
			map[string]any{"lat": 2, "lng": 2},
			map[string]any{"lat": 2, "lng": 0},
		},
	}), 200, &res)
	if res.Centroid.Lat != 1 || res.Centroid.Lng != 1 {
		t.Errorf("expected (1,1), got %+v", res.Centroid)
	}

	do(t, app, request("POST", "/v1/geometry/centroid", map[string]any{"ring": []any{}}), 400, nil)
}

// ---- GraphQL ----

func TestGraphQL_Area(t *testing.T) {
	app := setupApp(makeDeps(farmFixture("f1", tenant)))

	var res struct {
		Data struct {
			Area  float64 `json:"area"`
			Farms []struct {
				ID string `json:"id"`
			} `json:"farms"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	do(t, app, request("POST", "/graphql", map[string]any{
		"query": `{ area(ring: [{lat: 0, lng: 0}, {lat: 0, lng: 1}, {lat: 1, lng: 1}]) farms(tenant: "acme") { id } }`,
	}), 200, &res)

	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
	if res.Data.Area <= 0 {
		t.Errorf("expected a positive area, got %f", res.Data.Area)
	}
	if len(res.Data.Farms) != 1 || res.Data.Farms[0].ID != "f1" {
		t.Errorf("unexpected farms %+v", res.Data.Farms)
	}
}

func TestGraphQL_ContainsRejectsUnusableRing(t *testing.T) {
	app := setupApp(makeDeps())

	cases := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "out of range vertex",
			query: `{ contains(point: {lat: 0.9, lng: 0.1}, ring: [{lat: 0, lng: 0}, {lat: 0, lng: 1}, {lat: 1, lng: 1}, {lat: 95, lng: 0}]) }`,
			want:  "invalid coordinate",
		},
		{
			name:  "two point ring",
			query: `{ contains(point: {lat: 0.5, lng: 0.5}, ring: [{lat: 0, lng: 0}, {lat: 1, lng: 1}]) }`,
			want:  "at least 3 points",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var res struct {
				Data struct {
					Contains *bool `json:"contains"`
				} `json:"data"`
				Errors []struct {
					Message string `json:"message"`
				} `json:"errors"`
			}
			do(t, app, request("POST", "/graphql", map[string]any{"query": tc.query}), 200, &res)

			if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, tc.want) {
				t.Fatalf("expected one error containing %q, got %+v", tc.want, res.Errors)
			}
			if res.Data.Contains != nil {
				t.Errorf("expected no containment verdict, got %v", *res.Data.Contains)
			}
		})
	}
}

func TestGraphQL_Contains(t *testing.T) {
	app := setupApp(makeDeps())

	var res struct {
		Data struct {
			Contains bool `json:"contains"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	do(t, app, request("POST", "/graphql", map[string]any{
		"query": `{ contains(point: {lat: 0.5, lng: 0.5}, ring: [{lat: 0, lng: 0}, {lat: 0, lng: 1}, {lat: 1, lng: 1}, {lat: 1, lng: 0}]) }`,
	}), 200, &res)

	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
	if !res.Data.Contains {
		t.Error("expected the square to contain its center")
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
