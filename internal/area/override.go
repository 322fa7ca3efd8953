package area

import (
	"fmt"
	"regexp"
	"strings"

	"estate_distribution/internal/domain"
)

// OverrideRule maps an address fragment (a regular expression) to glyphs.
type OverrideRule struct {
	Pattern string
	Areas   []domain.AreaGlyph
}

type compiledRule struct {
	re    *regexp.Regexp
	areas []domain.AreaGlyph
}

// AddressOverrides is the escape hatch for named enclaves that radius and
// city rules misassign. Every matching rule contributes; there is no
// first-match short-circuit.
type AddressOverrides struct {
	rules []compiledRule
}

// NewAddressOverrides compiles rules in order. When cat is non-nil every
// referenced glyph must exist in it.
func NewAddressOverrides(rules []OverrideRule, cat *Catalog) (*AddressOverrides, error) {
	o := &AddressOverrides{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		label := fmt.Sprintf("override #%d", i+1)
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, &domain.CatalogMisconfiguration{Area: label, Problem: "empty pattern"}
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &domain.CatalogMisconfiguration{Area: label, Problem: "invalid pattern: " + err.Error()}
		}
		if len(r.Areas) == 0 {
			return nil, &domain.CatalogMisconfiguration{Area: label, Problem: "no areas"}
		}
		if cat != nil {
			for _, g := range r.Areas {
				if _, ok := cat.Lookup(g); !ok {
					return nil, &domain.CatalogMisconfiguration{Area: label, Problem: fmt.Sprintf("unknown area %q", g)}
				}
			}
		}
		o.rules = append(o.rules, compiledRule{re: re, areas: append([]domain.AreaGlyph(nil), r.Areas...)})
	}
	return o, nil
}

// Match returns the union of every matching rule's glyphs, or false when no
// rule matches. A nil receiver matches nothing.
func (o *AddressOverrides) Match(address string) ([]domain.AreaGlyph, bool) {
	if o == nil {
		return nil, false
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, false
	}
	var out []domain.AreaGlyph
	seen := map[domain.AreaGlyph]struct{}{}
	matched := false
	for _, r := range o.rules {
		if !r.re.MatchString(address) {
			continue
		}
		matched = true
		for _, g := range r.areas {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out, matched
}

func (o *AddressOverrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.rules)
}
