package area_test

import (
	"errors"
	"testing"

	"estate_distribution/internal/area"
	"estate_distribution/internal/domain"
)

func TestOverrides_AllMatchingRulesAreUnioned(t *testing.T) {
	ov, err := area.NewAddressOverrides([]area.OverrideRule{
		{Pattern: "吉祥寺", Areas: []domain.AreaGlyph{"㊵"}},
		{Pattern: "吉祥寺(本町|南町)", Areas: []domain.AreaGlyph{"㊶", "㊵"}},
		{Pattern: "深大寺", Areas: []domain.AreaGlyph{"Ⓐ"}},
	}, nil)
	if err != nil {
		t.Fatalf("NewAddressOverrides: %v", err)
	}
	got, ok := ov.Match("東京都武蔵野市吉祥寺本町1-2-3")
	if !ok {
		t.Fatalf("expected a match")
	}
	if len(got) != 2 || got[0] != "㊵" || got[1] != "㊶" {
		t.Fatalf("expected union {㊵,㊶}, got %v", got)
	}
}

func TestOverrides_NoMatchIsNotAnError(t *testing.T) {
	ov, err := area.NewAddressOverrides([]area.OverrideRule{{Pattern: "深大寺", Areas: []domain.AreaGlyph{"Ⓐ"}}}, nil)
	if err != nil {
		t.Fatalf("NewAddressOverrides: %v", err)
	}
	if got, ok := ov.Match("大阪府大阪市北区"); ok || got != nil {
		t.Fatalf("expected no match, got %v %v", got, ok)
	}
	var nilOv *area.AddressOverrides
	if _, ok := nilOv.Match("深大寺"); ok {
		t.Fatalf("nil overrides must not match")
	}
}

func TestOverrides_RejectsBadRules(t *testing.T) {
	cat, err := area.NewCatalog([]domain.AreaDefinition{city("㊵", "A", true)})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	bad := [][]area.OverrideRule{
		{{Pattern: "(", Areas: []domain.AreaGlyph{"㊵"}}},
		{{Pattern: " ", Areas: []domain.AreaGlyph{"㊵"}}},
		{{Pattern: "x", Areas: nil}},
		{{Pattern: "x", Areas: []domain.AreaGlyph{"㊿"}}},
	}
	for i, rules := range bad {
		if _, err := area.NewAddressOverrides(rules, cat); !errors.Is(err, domain.ErrCatalogMisconfigured) {
			t.Fatalf("case %d: expected misconfiguration, got %v", i, err)
		}
	}
}
