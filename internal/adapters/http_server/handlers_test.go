package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"estate_distribution/internal/app"
	"estate_distribution/internal/area"
	"estate_distribution/internal/domain"
)

type fakeAreas struct {
	res  app.AssignResult
	err  error
	seen string
}

func (f *fakeAreas) AssignByID(ctx context.Context, id string) (app.AssignResult, error) {
	f.seen = id
	return f.res, f.err
}

func (f *fakeAreas) Explain(ctx context.Context, id string) (app.Breakdown, error) {
	f.seen = id
	return f.res.Breakdown, f.err
}

type fakeRecipients struct {
	res domain.MatchResult
	err error
}

func (f *fakeRecipients) Recipients(ctx context.Context, id string) (domain.MatchResult, error) {
	return f.res, f.err
}

func testServer(t *testing.T, a *fakeAreas, r *fakeRecipients) *httptest.Server {
	t.Helper()
	cat, _, err := area.Load([]byte(`
areas:
  - id: "③"
    center: {lat: 35.7, lng: 139.7}
    radius_km: 3
  - id: "㊵"
    city: Musashino
  - id: "Ⓑ"
    city: Fuchu
    active: false
`))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s := New(0)
	s.MountHandlers(&Handlers{Areas: a, Recipients: r, Catalog: cat})
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func TestAssignAreas_OK(t *testing.T) {
	a := &fakeAreas{res: app.AssignResult{
		Breakdown: app.Breakdown{
			PropertyID: "P1",
			Areas:      domain.DistributionAreaSet{"③", "㊵"},
			Coordinate: &domain.Coordinate{Lat: 35.7, Lng: 139.7},
			GeoSource:  app.SourceLink,
		},
		Changed: true,
	}}
	ts := testServer(t, a, &fakeRecipients{})

	resp, err := http.Post(ts.URL+"/v1/properties/P1/areas", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body assignResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.seen != "P1" || body.Areas != "③㊵" || len(body.Glyphs) != 2 || !body.Changed || body.Coordinate == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAssignAreas_NotFoundIsProblem(t *testing.T) {
	ts := testServer(t, &fakeAreas{err: domain.ErrNotFound}, &fakeRecipients{})

	resp, err := http.Post(ts.URL+"/v1/properties/nope/areas", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type = %q", ct)
	}
	var p problem
	_ = json.NewDecoder(resp.Body).Decode(&p)
	if p.Status != 404 || p.Title != "Not Found" {
		t.Fatalf("unexpected problem: %+v", p)
	}
}

func TestAssignAreas_StoreFailureIsBadGateway(t *testing.T) {
	ts := testServer(t, &fakeAreas{err: errors.New("boom")}, &fakeRecipients{})
	resp, err := http.Post(ts.URL+"/v1/properties/P1/areas", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestExplain_ReturnsBreakdownWithETag(t *testing.T) {
	a := &fakeAreas{res: app.AssignResult{Breakdown: app.Breakdown{
		PropertyID: "P1",
		CityWide:   domain.DistributionAreaSet{"㊵"},
		GeoError:   "geo failure",
		Areas:      domain.DistributionAreaSet{"㊵"},
	}}}
	ts := testServer(t, a, &fakeRecipients{})

	resp, err := http.Get(ts.URL + "/v1/properties/P1/areas/explain")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != 200 || etag == "" {
		t.Fatalf("status = %d etag = %q", resp.StatusCode, etag)
	}
	var b map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&b)
	if b["geo_error"] != "geo failure" || b["property_id"] != "P1" {
		t.Fatalf("unexpected breakdown: %v", b)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/properties/P1/areas/explain", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Fatalf("want 304, got %d", resp2.StatusCode)
	}
}

func TestRecipients_DiagnosticsOptIn(t *testing.T) {
	r := &fakeRecipients{res: domain.MatchResult{
		PropertyID:           "P1",
		QualifiedContactKeys: []string{"a@example.com"},
		Diagnostics: map[string]domain.BuyerDiagnostics{
			"B1": {Geography: true, Distribution: true, Status: true, PriceRange: true},
			"B2": {Exclusion: domain.ExclusionBrokerInquiry},
		},
	}}
	ts := testServer(t, &fakeAreas{}, r)

	get := func(q string) domain.MatchResult {
		t.Helper()
		resp, err := http.Get(ts.URL + "/v1/properties/P1/recipients" + q)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var m domain.MatchResult
		if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return m
	}

	plain := get("")
	if len(plain.QualifiedContactKeys) != 1 || plain.Diagnostics != nil {
		t.Fatalf("diagnostics must be omitted by default: %+v", plain)
	}
	withDiag := get("?diagnostics=1")
	if withDiag.Diagnostics["B2"].Exclusion != domain.ExclusionBrokerInquiry {
		t.Fatalf("diagnostics missing: %+v", withDiag)
	}

	resp, err := http.Get(ts.URL + "/v1/properties/P1/recipients?diagnostics=maybe")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func TestListAreas_IncludesInactive(t *testing.T) {
	ts := testServer(t, &fakeAreas{}, &fakeRecipients{})
	resp, err := http.Get(ts.URL + "/v1/areas")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Areas []areaView `json:"areas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Areas) != 3 {
		t.Fatalf("want 3 areas, got %+v", body.Areas)
	}
	if body.Areas[0].Kind != "radius" || body.Areas[0].Center == nil || body.Areas[0].RadiusKm != 3 {
		t.Fatalf("unexpected radius area: %+v", body.Areas[0])
	}
	if b := body.Areas[2]; b.ID != "Ⓑ" || b.Active || b.Kind != "city" {
		t.Fatalf("unexpected inactive area: %+v", b)
	}
}

func TestHealthz(t *testing.T) {
	ts := testServer(t, &fakeAreas{}, &fakeRecipients{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || string(b) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, b)
	}
}
