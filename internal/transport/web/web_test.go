package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/avstrong/rentals/internal/idgen/simple"
	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/migration"
	"github.com/avstrong/rentals/internal/search"
	"github.com/avstrong/rentals/internal/storage/memory"
)

func newTestServer(t *testing.T, seed bool) *Server {
	t.Helper()

	ctx := context.Background()
	l := logger.Discard()
	store := memory.New(memory.Config{L: l, Versions: simple.New()})

	if seed {
		if err := migration.Up(ctx, l, store); err != nil {
			t.Fatalf("seed fixtures: %v", err)
		}
	}

	manager := search.New(l, store, search.Limits{DefaultPageSize: 20, MaxPageSize: 100, MaxStayNights: 365})

	//nolint:exhaustruct
	srv, err := New(ctx, Conf{L: l, LivenessEndpoint: "/liveness"}, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return srv
}

func get(t *testing.T, srv *Server, target string, out any) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s response %q: %v", target, rec.Body.String(), err)
		}
	}

	return rec
}

type pageResponse struct {
	Count          int               `json:"count"`
	Page           int               `json:"page"`
	PageSize       int               `json:"page_size"`
	RadiusKm       float64           `json:"radius_km"`
	FiltersApplied map[string]string `json:"filters_applied"`
	Results        []struct {
		ID                int64    `json:"id"`
		BasePricePerNight string   `json:"base_price_per_night"`
		DistanceKm        *float64 `json:"distance_km"`
		IsAvailable       *bool    `json:"is_available"`
		Pricing           *struct {
			TotalPrice string `json:"total_price"`
		} `json:"pricing"`
	} `json:"results"`
}

func (p *pageResponse) ids() []int64 {
	out := make([]int64, 0, len(p.Results))
	for _, r := range p.Results {
		out = append(out, r.ID)
	}

	return out
}

type errorsResponse struct {
	Errors map[string][]string `json:"errors"`
}

func sameIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}

	return true
}

func TestLiveness(t *testing.T) {
	if rec := get(t, newTestServer(t, false), "/liveness", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
}

func TestSearchByCity(t *testing.T) {
	var page pageResponse

	rec := get(t, newTestServer(t, true), "/api/listings/v1?city=berlin", &page)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if !sameIDs(page.ids(), []int64{2, 1}) {
		t.Fatalf("ids: got %v, want [2 1]", page.ids())
	}

	if page.Results[0].BasePricePerNight != "65.00" {
		t.Errorf("price: got %q, want 65.00", page.Results[0].BasePricePerNight)
	}

	if page.FiltersApplied["city"] != "berlin" || page.PageSize != 20 || page.Page != 1 {
		t.Errorf("page meta: %+v", page)
	}

	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("trace id header missing")
	}
}

func TestSearchWithStayAndAvailableOnly(t *testing.T) {
	var page pageResponse

	rec := get(t, newTestServer(t, true),
		"/api/listings/v1?city=berlin&check_in=2025-07-10&check_out=2025-07-12&available_only=true", &page)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if !sameIDs(page.ids(), []int64{2}) {
		t.Fatalf("ids: got %v, want [2]", page.ids())
	}

	r := page.Results[0]
	if r.IsAvailable == nil || !*r.IsAvailable || r.Pricing == nil || r.Pricing.TotalPrice != "130.00" {
		t.Fatalf("annotations: %+v", r)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, true)

	tests := map[string]string{
		"/api/listings/v1?ordering=distance":                        "ordering",
		"/api/listings/v1?bedrooms=two":                             "bedrooms",
		"/api/listings/v1?latitude=52.5":                            "latitude",
		"/api/listings/v1?check_in=2025-07-03&check_out=2025-07-01": "check_out",
		"/api/listings/v1?check_in=July":                            "check_in",
		"/api/listings/v1?page=0":                                   "page",
		"/api/listings/v1?check_in=0001-01-01&check_out=9999-12-31": "check_out",
		"/api/listings/v1?page_size=500":                            "page_size",
	}

	for target, field := range tests {
		var body errorsResponse

		rec := get(t, srv, target, &body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", target, rec.Code)

			continue
		}

		if len(body.Errors[field]) == 0 {
			t.Errorf("%s: no error for %q in %v", target, field, body.Errors)
		}
	}
}

func TestSearchPageBeyondLastIsEmpty(t *testing.T) {
	var page pageResponse

	rec := get(t, newTestServer(t, true), "/api/listings/v1?page=9223372036854775807", &page)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if page.Count != 8 || len(page.Results) != 0 {
		t.Fatalf("page: count %d with %d results, want 8 with none", page.Count, len(page.Results))
	}
}

func TestNearby(t *testing.T) {
	var page pageResponse

	rec := get(t, newTestServer(t, true), "/api/listings/v1/nearby?latitude=52.52&longitude=13.40", &page)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if page.RadiusKm != 10 {
		t.Errorf("radius: got %v, want 10", page.RadiusKm)
	}

	if !sameIDs(page.ids(), []int64{1, 2}) {
		t.Fatalf("ids: got %v, want [1 2]", page.ids())
	}

	for _, r := range page.Results {
		if r.DistanceKm == nil || *r.DistanceKm > 10 {
			t.Fatalf("listing %d distance %v", r.ID, r.DistanceKm)
		}
	}

	var body errorsResponse
	if rec := get(t, newTestServer(t, true), "/api/listings/v1/nearby?latitude=52.52", &body); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing longitude: status %d, want 400", rec.Code)
	}
}

func TestGeoJSON(t *testing.T) {
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       int64 `json:"id"`
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Geohash string `json:"geohash"`
			} `json:"properties"`
		} `json:"features"`
	}

	rec := get(t, newTestServer(t, true), "/api/listings/v1/geojson?country=Germany", &fc)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Fatalf("collection: %s with %d features", fc.Type, len(fc.Features))
	}

	f := fc.Features[1]
	if f.ID != 1 || f.Geometry.Coordinates != [2]float64{13.4132, 52.5219} {
		t.Fatalf("loft feature: %+v", f)
	}

	if len(f.Properties.Geohash) != 8 || f.Properties.Geohash[:4] != "u33d" {
		t.Fatalf("geohash: got %q", f.Properties.Geohash)
	}
}

func TestListingDetail(t *testing.T) {
	srv := newTestServer(t, true)

	var detail struct {
		ID               int64 `json:"id"`
		Images           []any `json:"images"`
		UnavailableDates []struct {
			CheckIn string `json:"check_in"`
			Status  string `json:"status"`
		} `json:"unavailable_dates"`
	}

	rec := get(t, srv, "/api/listings/v1/1", &detail)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if len(detail.Images) != 2 || len(detail.UnavailableDates) != 2 || detail.UnavailableDates[0].CheckIn != "2025-07-10" {
		t.Fatalf("detail: %+v", detail)
	}

	if rec := get(t, srv, "/api/listings/v1/999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown listing: status %d, want 404", rec.Code)
	}

	if rec := get(t, srv, "/api/listings/v1/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d, want 400", rec.Code)
	}
}

func TestPriceQuote(t *testing.T) {
	srv := newTestServer(t, true)

	var quote struct {
		Nights          int    `json:"nights"`
		TotalPrice      string `json:"total_price"`
		AveragePerNight string `json:"average_price_per_night"`
		DailyBreakdown  []struct {
			Date       string `json:"date"`
			Multiplier string `json:"multiplier"`
			Price      string `json:"price"`
			Rule       string `json:"rule"`
		} `json:"daily_breakdown"`
	}

	rec := get(t, srv, "/api/listings/v1/1/price?check_in=2025-07-01&check_out=2025-07-03", &quote)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if quote.Nights != 2 || quote.TotalPrice != "260.00" || quote.AveragePerNight != "130.00" {
		t.Fatalf("quote: %+v", quote)
	}

	for _, n := range quote.DailyBreakdown {
		if n.Multiplier != "1.30" || n.Rule != "Summer" || n.Price != "130.00" {
			t.Fatalf("night %s: %+v", n.Date, n)
		}
	}

	for _, target := range []string{
		"/api/listings/v1/1/price",
		"/api/listings/v1/1/price?check_in=2025-07-03&check_out=2025-07-03",
		"/api/listings/v1/1/price?check_in=0001-01-01&check_out=9999-12-31",
	} {
		if rec := get(t, srv, target, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", target, rec.Code)
		}
	}
}

func TestAvailability(t *testing.T) {
	srv := newTestServer(t, true)

	var report struct {
		IsAvailable      *bool `json:"is_available"`
		TotalBookings    int   `json:"total_bookings"`
		UnavailableDates []any `json:"unavailable_dates"`
	}

	rec := get(t, srv, "/api/listings/v1/1/availability?check_in=2025-07-14&check_out=2025-07-16", &report)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	if report.IsAvailable == nil || !*report.IsAvailable || report.TotalBookings != 2 {
		t.Fatalf("report: %+v", report)
	}

	report.IsAvailable = nil

	get(t, srv, "/api/listings/v1/1/availability?check_in=2025-07-12&check_out=2025-07-16", &report)

	if report.IsAvailable == nil || *report.IsAvailable {
		t.Fatal("overlapping stay must be unavailable")
	}
}

func TestCatalogNotLoaded(t *testing.T) {
	if rec := get(t, newTestServer(t, false), "/api/listings/v1", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
}

func TestTraceIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, true)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/liveness", nil)
	req.Header.Set("X-Trace-ID", id)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-ID"); got != id {
		t.Fatalf("trace id: got %q, want %q", got, id)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	srv := newTestServer(t, false)

	h := srv.recoverMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/liveness", nil)
	req.Header.Set("Origin", "https://maps.example.com")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin: got %q, want *", got)
	}
}
