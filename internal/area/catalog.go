// Package area holds the static zone registry and the pure layers of area
// assignment: city-wide lookup, address overrides and radius matching.
package area

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"estate_distribution/internal/domain"
)

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	defs   []domain.AreaDefinition
	byID   map[domain.AreaGlyph]int
	byCity map[string][]domain.AreaGlyph
	radius []domain.AreaDefinition
	suffix domain.SuffixOrder
}

// NewCatalog validates every definition and builds the lookup tables.
// Any violation is a *domain.CatalogMisconfiguration.
func NewCatalog(defs []domain.AreaDefinition) (*Catalog, error) {
	c := &Catalog{
		defs:   make([]domain.AreaDefinition, 0, len(defs)),
		byID:   make(map[domain.AreaGlyph]int, len(defs)),
		byCity: make(map[string][]domain.AreaGlyph),
		suffix: make(domain.SuffixOrder),
	}
	for i, d := range defs {
		if err := validateDefinition(i, d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, &domain.CatalogMisconfiguration{Area: string(d.ID), Problem: "duplicate area id"}
		}
		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
		if _, ok := d.ID.Ordinal(); !ok {
			c.suffix[d.ID] = len(c.suffix)
		}
		if !d.Active {
			continue
		}
		switch s := d.Scope.(type) {
		case domain.CityWide:
			k := NormalizeCity(s.City)
			c.byCity[k] = append(c.byCity[k], d.ID)
		case domain.RadiusBased:
			c.radius = append(c.radius, d)
		}
	}
	return c, nil
}

func validateDefinition(i int, d domain.AreaDefinition) error {
	name := string(d.ID)
	if name == "" {
		name = fmt.Sprintf("#%d", i)
	}
	if utf8.RuneCountInString(string(d.ID)) != 1 {
		return &domain.CatalogMisconfiguration{Area: name, Problem: "id must be exactly one glyph"}
	}
	r, _ := utf8.DecodeRuneInString(string(d.ID))
	if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsControl(r) {
		return &domain.CatalogMisconfiguration{Area: name, Problem: "id must not be whitespace or punctuation"}
	}
	switch s := d.Scope.(type) {
	case domain.CityWide:
		if NormalizeCity(s.City) == "" {
			return &domain.CatalogMisconfiguration{Area: name, Problem: "city-wide area without a city"}
		}
	case domain.RadiusBased:
		if !s.Center.Valid() {
			return &domain.CatalogMisconfiguration{Area: name, Problem: "radius area center out of range"}
		}
		if !(s.RadiusKm > 0) {
			return &domain.CatalogMisconfiguration{Area: name, Problem: "radius must be positive"}
		}
	default:
		return &domain.CatalogMisconfiguration{Area: name, Problem: "area has no scope"}
	}
	return nil
}

// NormalizeCity lower-cases and collapses whitespace. Matching on the
// result is exact; partial names never match.
func NormalizeCity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// CityWideAreas returns the active city-wide areas for city, canonically ordered.
func (c *Catalog) CityWideAreas(city string) domain.DistributionAreaSet {
	k := NormalizeCity(city)
	if k == "" {
		return nil
	}
	return c.Canonical(c.byCity[k]...)
}

// RadiusAreas returns the active radius-based definitions.
func (c *Catalog) RadiusAreas() []domain.AreaDefinition {
	out := make([]domain.AreaDefinition, len(c.radius))
	copy(out, c.radius)
	return out
}

// IsActive is false for inactive and unknown glyphs.
func (c *Catalog) IsActive(g domain.AreaGlyph) bool {
	i, ok := c.byID[g]
	return ok && c.defs[i].Active
}

// Lookup finds a definition, inactive ones included.
func (c *Catalog) Lookup(g domain.AreaGlyph) (domain.AreaDefinition, bool) {
	i, ok := c.byID[g]
	if !ok {
		return domain.AreaDefinition{}, false
	}
	return c.defs[i], true
}

// Definitions lists every definition in declaration order.
func (c *Catalog) Definitions() []domain.AreaDefinition {
	out := make([]domain.AreaDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Canonical dedups and orders glyphs using this catalog's suffix order.
func (c *Catalog) Canonical(glyphs ...domain.AreaGlyph) domain.DistributionAreaSet {
	return domain.NewDistributionAreaSet(c.suffix, glyphs...)
}

// ActiveOnly drops glyphs that are inactive or unknown to the catalog.
func (c *Catalog) ActiveOnly(glyphs []domain.AreaGlyph) []domain.AreaGlyph {
	out := make([]domain.AreaGlyph, 0, len(glyphs))
	for _, g := range glyphs {
		if c.IsActive(g) {
			out = append(out, g)
		}
	}
	return out
}
