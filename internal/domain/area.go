package domain

import (
	"sort"
	"strings"
	"unicode"
)

// AreaGlyph is the single-rune symbol naming one distribution zone (①, ㊵, Ⓐ ...).
type AreaGlyph string

// Ordinal reports the number a circled-number glyph stands for.
func (g AreaGlyph) Ordinal() (int, bool) {
	rs := []rune(string(g))
	if len(rs) != 1 {
		return 0, false
	}
	switch r := rs[0]; {
	case r == '⓪':
		return 0, true
	case r >= '①' && r <= '⑳':
		return int(r-'①') + 1, true
	case r >= '㉑' && r <= '㉟':
		return int(r-'㉑') + 21, true
	case r >= '㊱' && r <= '㊿':
		return int(r-'㊱') + 36, true
	}
	return 0, false
}

// GlyphForOrdinal is the inverse of Ordinal for 0..50.
func GlyphForOrdinal(n int) (AreaGlyph, bool) {
	switch {
	case n == 0:
		return "⓪", true
	case n >= 1 && n <= 20:
		return AreaGlyph(string(rune('①' + n - 1))), true
	case n >= 21 && n <= 35:
		return AreaGlyph(string(rune('㉑' + n - 21))), true
	case n >= 36 && n <= 50:
		return AreaGlyph(string(rune('㊱' + n - 36))), true
	}
	return "", false
}

// AreaScope is the payload of an AreaDefinition: either CityWide or RadiusBased.
type AreaScope interface{ isAreaScope() }

// CityWide applies to every property whose city matches, regardless of coordinate.
type CityWide struct {
	City string
}

// RadiusBased applies to properties within RadiusKm of Center.
type RadiusBased struct {
	Center   Coordinate
	RadiusKm float64
}

func (CityWide) isAreaScope()    {}
func (RadiusBased) isAreaScope() {}

type AreaDefinition struct {
	ID     AreaGlyph
	Scope  AreaScope
	Active bool
}

// SuffixOrder holds the catalog position of non-ordinal glyphs.
type SuffixOrder map[AreaGlyph]int

// DistributionAreaSet is a duplicate-free glyph list in canonical order:
// ordinal glyphs by number, then catalog suffix areas, then anything else.
type DistributionAreaSet []AreaGlyph

// NewDistributionAreaSet dedups and orders glyphs canonically.
func NewDistributionAreaSet(suffix SuffixOrder, glyphs ...AreaGlyph) DistributionAreaSet {
	seen := make(map[AreaGlyph]struct{}, len(glyphs))
	out := make(DistributionAreaSet, 0, len(glyphs))
	for _, g := range glyphs {
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return canonicalLess(suffix, out[i], out[j]) })
	return out
}

func canonicalLess(suffix SuffixOrder, a, b AreaGlyph) bool {
	ca, ra := canonicalRank(suffix, a)
	cb, rb := canonicalRank(suffix, b)
	if ca != cb {
		return ca < cb
	}
	if ca == 2 {
		return a < b
	}
	return ra < rb
}

// canonicalRank returns (class, rank): 0 ordinal, 1 catalog suffix, 2 unknown.
func canonicalRank(suffix SuffixOrder, g AreaGlyph) (int, int) {
	if n, ok := g.Ordinal(); ok {
		return 0, n
	}
	if pos, ok := suffix[g]; ok {
		return 1, pos
	}
	return 2, 0
}

// String serializes the set as the concatenation of its glyphs.
func (s DistributionAreaSet) String() string {
	var b strings.Builder
	for _, g := range s {
		b.WriteString(string(g))
	}
	return b.String()
}

func (s DistributionAreaSet) Contains(g AreaGlyph) bool {
	for _, x := range s {
		if x == g {
			return true
		}
	}
	return false
}

func (s DistributionAreaSet) Equal(o DistributionAreaSet) bool {
	return s.String() == o.String()
}

// ContainsAll reports whether every glyph of o is in s.
func (s DistributionAreaSet) ContainsAll(o DistributionAreaSet) bool {
	for _, g := range o {
		if !s.Contains(g) {
			return false
		}
	}
	return true
}

// GlyphSet is an unordered glyph set, used for buyer preferences.
type GlyphSet map[AreaGlyph]struct{}

func NewGlyphSet(glyphs ...AreaGlyph) GlyphSet {
	s := make(GlyphSet, len(glyphs))
	for _, g := range glyphs {
		if g != "" {
			s[g] = struct{}{}
		}
	}
	return s
}

// Intersects reports whether any glyph of s is in areas.
func (s GlyphSet) Intersects(areas DistributionAreaSet) bool {
	for _, g := range areas {
		if _, ok := s[g]; ok {
			return true
		}
	}
	return false
}

const extraSeparators = "+|＋｜~〜"

// ParseGlyphs splits a glyph string ("③④ ㊵", "③、④") into distinct glyphs,
// keeping first-seen order. Whitespace and punctuation are separators.
func ParseGlyphs(s string) []AreaGlyph {
	var out []AreaGlyph
	seen := map[AreaGlyph]struct{}{}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsControl(r) || strings.ContainsRune(extraSeparators, r) {
			continue
		}
		g := AreaGlyph(string(r))
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
