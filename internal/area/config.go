package area

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"estate_distribution/internal/domain"
)

type fileConfig struct {
	Areas     []areaRow     `yaml:"areas"`
	Overrides []overrideRow `yaml:"overrides"`
}

// areaRow mirrors the loosely-typed config shape; toDefinition turns it into
// the tagged domain variant.
type areaRow struct {
	ID       string     `yaml:"id"`
	City     *string    `yaml:"city"`
	Center   *centerRow `yaml:"center"`
	RadiusKm *float64   `yaml:"radius_km"`
	Active   *bool      `yaml:"active"`
}

type centerRow struct {
	Lat *float64 `yaml:"lat"`
	Lng *float64 `yaml:"lng"`
}

type overrideRow struct {
	Pattern string `yaml:"pattern"`
	Areas   string `yaml:"areas"`
}

// LoadFile reads the catalog and override table from a YAML file.
func LoadFile(path string) (*Catalog, *AddressOverrides, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Load(b)
}

// Load parses YAML catalog content. Errors other than I/O are
// *domain.CatalogMisconfiguration.
func Load(b []byte) (*Catalog, *AddressOverrides, error) {
	var fc fileConfig
	if err := yaml.UnmarshalStrict(b, &fc); err != nil {
		return nil, nil, &domain.CatalogMisconfiguration{Problem: "unparseable catalog: " + err.Error()}
	}
	if len(fc.Areas) == 0 {
		return nil, nil, &domain.CatalogMisconfiguration{Problem: "no areas defined"}
	}
	defs := make([]domain.AreaDefinition, 0, len(fc.Areas))
	for i, row := range fc.Areas {
		d, err := row.toDefinition(i)
		if err != nil {
			return nil, nil, err
		}
		defs = append(defs, d)
	}
	cat, err := NewCatalog(defs)
	if err != nil {
		return nil, nil, err
	}
	rules := make([]OverrideRule, 0, len(fc.Overrides))
	for _, o := range fc.Overrides {
		rules = append(rules, OverrideRule{Pattern: o.Pattern, Areas: domain.ParseGlyphs(o.Areas)})
	}
	ov, err := NewAddressOverrides(rules, cat)
	if err != nil {
		return nil, nil, err
	}
	return cat, ov, nil
}

func (r areaRow) toDefinition(i int) (domain.AreaDefinition, error) {
	id := domain.AreaGlyph(strings.TrimSpace(r.ID))
	if n, err := strconv.Atoi(string(id)); err == nil {
		g, ok := domain.GlyphForOrdinal(n)
		if !ok {
			return domain.AreaDefinition{}, &domain.CatalogMisconfiguration{Area: r.ID, Problem: "ordinal out of range"}
		}
		id = g
	}
	label := string(id)
	if label == "" {
		label = fmt.Sprintf("#%d", i)
	}
	hasCity := r.City != nil && strings.TrimSpace(*r.City) != ""
	hasRadius := r.Center != nil || r.RadiusKm != nil
	d := domain.AreaDefinition{ID: id, Active: r.Active == nil || *r.Active}
	switch {
	case hasCity && hasRadius:
		return d, &domain.CatalogMisconfiguration{Area: label, Problem: "both city and center/radius_km set"}
	case hasCity:
		d.Scope = domain.CityWide{City: strings.TrimSpace(*r.City)}
	case hasRadius:
		if r.Center == nil || r.Center.Lat == nil || r.Center.Lng == nil || r.RadiusKm == nil {
			return d, &domain.CatalogMisconfiguration{Area: label, Problem: "radius area needs center.lat, center.lng and radius_km"}
		}
		d.Scope = domain.RadiusBased{
			Center:   domain.Coordinate{Lat: *r.Center.Lat, Lng: *r.Center.Lng},
			RadiusKm: *r.RadiusKm,
		}
	default:
		return d, &domain.CatalogMisconfiguration{Area: label, Problem: "neither city nor center/radius_km set"}
	}
	return d, nil
}
