package tablestore_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"estate_distribution/internal/adapters/fieldcodec"
	"estate_distribution/internal/adapters/tablestore"
	"estate_distribution/internal/domain"
)

type fakeTables struct {
	mu      sync.Mutex
	patches []map[string]any
}

func (f *fakeTables) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/tables/properties/records":
		if r.URL.Query().Get("offset") == "" {
			writeJSON(w, map[string]any{
				"records": []any{map[string]any{"id": "rec1", "fields": map[string]any{
					"所在地":                "東京都武蔵野市吉祥寺本町1-1",
					"city":               "Musashino",
					"種別":                 "戸建",
					"価格":                 "4,500万",
					"distribution_areas": "③㊵",
					"latitude":           35.70,
					"longitude":          "139.58",
					"geo_key":            "|東京都武蔵野市吉祥寺本町1-1",
				}}},
				"offset": "next",
			})
			return
		}
		writeJSON(w, map[string]any{
			"records": []any{map[string]any{"id": "rec2", "fields": map[string]any{
				"address":        "Somewhere",
				"google_map_url": "https://maps.app.goo.gl/x",
				"property_type":  "land",
				"price":          12000000.0,
			}}},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/tables/properties/records/rec1":
		writeJSON(w, map[string]any{"id": "rec1", "fields": map[string]any{"address": "a", "city": "c"}})
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/tables/properties/records/"):
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.patches = append(f.patches, body)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"id": "ok"})
	case r.Method == http.MethodGet && r.URL.Path == "/tables/buyers/records":
		writeJSON(w, map[string]any{"records": []any{
			map[string]any{"id": "b1", "fields": map[string]any{
				"メールアドレス":           sealed,
				"希望エリア":             []any{"③", "㊵"},
				"希望種別":              "マンション",
				"price_range_condo": "3000万~5000万",
				"配信希望":              "要",
				"ステータス":             "追客中",
				"業者問合せ":             false,
			}},
			map[string]any{"id": "b2", "fields": map[string]any{
				"email":          "enc:corrupted",
				"phone":          "090-1234-5678",
				"broker_inquiry": true,
			}},
		}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var (
	codec, _  = fieldcodec.NewAESGCM([]byte("0123456789abcdef"))
	sealed, _ = codec.Encode("Buyer@Example.com")
)

func newStore(t *testing.T) (*tablestore.Store, *fakeTables) {
	t.Helper()
	f := &fakeTables{}
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	s, err := tablestore.New(tablestore.Config{BaseURL: ts.URL, APIKey: "key", RPS: 100}, codec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, f
}

func TestListProperties_PagesAndMapsAliases(t *testing.T) {
	s, _ := newStore(t)
	props, err := s.ListProperties(context.Background())
	if err != nil {
		t.Fatalf("ListProperties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("expected 2 properties across pages, got %d", len(props))
	}
	p := props[0]
	if p.ID() != "rec1" || p.Location.City != "Musashino" || p.Type != domain.PropertyTypeHouse || p.Price != 45000000 {
		t.Fatalf("unexpected property %+v", p)
	}
	if p.Areas.String() != "③㊵" || p.Location.Coordinate == nil || p.Location.Coordinate.Lng != 139.58 {
		t.Fatalf("unexpected areas/coordinate %+v %+v", p.Areas, p.Location.Coordinate)
	}
	if props[1].Location.MapLink != "https://maps.app.goo.gl/x" || props[1].Price != 12000000 || props[1].Location.Coordinate != nil {
		t.Fatalf("unexpected second property %+v", props[1])
	}
}

func TestGetProperty(t *testing.T) {
	s, _ := newStore(t)
	p, err := s.GetProperty(context.Background(), "rec1")
	if err != nil || p.Location.Address != "a" {
		t.Fatalf("GetProperty = %+v, %v", p, err)
	}
	if _, err := s.GetProperty(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAssignment_SinglePatch(t *testing.T) {
	s, f := newStore(t)
	ctx := context.Background()

	err := s.SaveAssignment(ctx, domain.AreaAssignment{
		PropertyID: "rec1",
		Areas:      domain.DistributionAreaSet{"③", "㊵"},
		Coordinate: &domain.Coordinate{Lat: 35.7, Lng: 139.58},
		GeoKey:     "k",
	})
	if err != nil {
		t.Fatalf("SaveAssignment: %v", err)
	}
	if err := s.SaveAssignment(ctx, domain.AreaAssignment{PropertyID: "rec1", Areas: domain.DistributionAreaSet{"㊵"}}); err != nil {
		t.Fatalf("SaveAssignment: %v", err)
	}
	if len(f.patches) != 2 {
		t.Fatalf("expected 2 patches, got %d", len(f.patches))
	}
	first := f.patches[0]["fields"].(map[string]any)
	if first["distribution_areas"] != "③㊵" || first["latitude"] != 35.7 || first["geo_key"] != "k" {
		t.Fatalf("unexpected first patch %+v", first)
	}
	second := f.patches[1]["fields"].(map[string]any)
	if _, ok := second["latitude"]; ok || second["distribution_areas"] != "㊵" {
		t.Fatalf("area-only write must not touch the coordinate: %+v", second)
	}
	if err := s.SaveAssignment(ctx, domain.AreaAssignment{PropertyID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBuyers_DecodesPersonalFields(t *testing.T) {
	s, _ := newStore(t)
	buyers, err := s.ListBuyers(context.Background())
	if err != nil {
		t.Fatalf("ListBuyers: %v", err)
	}
	if len(buyers) != 2 {
		t.Fatalf("expected 2 buyers, got %d", len(buyers))
	}
	b := buyers[0]
	if b.ContactKey != "buyer@example.com" || b.DesiredPropertyType != domain.PropertyTypeCondo || len(b.DesiredAreas) != 2 {
		t.Fatalf("unexpected buyer %+v", b)
	}
	if b.Distribution != domain.DistributionRequired || b.Status != domain.StatusActive || b.BrokerInquiry {
		t.Fatalf("unexpected flags %+v", b)
	}
	if !b.PriceRangeByType[domain.PropertyTypeCondo].Contains(40000000) {
		t.Fatalf("condo range not parsed: %+v", b.PriceRangeByType)
	}
	// the corrupted email is dropped and the phone becomes the contact key
	if buyers[1].ContactKey != "09012345678" || !buyers[1].BrokerInquiry {
		t.Fatalf("unexpected second buyer %+v", buyers[1])
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := tablestore.New(tablestore.Config{BaseURL: "http://x"}, nil); err == nil {
		t.Fatalf("expected missing key error")
	}
}
