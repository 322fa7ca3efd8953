package app

import (
	"sort"

	"estate_distribution/internal/adapters/observability"
	"estate_distribution/internal/domain"
)

// QualificationEngine filters a buyer population down to the contacts that
// should receive a property. It holds no state and is safe for concurrent use.
type QualificationEngine struct{}

func NewQualificationEngine() *QualificationEngine { return &QualificationEngine{} }

// Evaluate runs every check for one buyer. Hard exclusions are recorded in
// Exclusion and override the four booleans, which are still filled in.
func (e *QualificationEngine) Evaluate(offer domain.PropertyOffer, b domain.BuyerCriteria) domain.BuyerDiagnostics {
	d := domain.BuyerDiagnostics{
		Geography:    len(b.DesiredAreas) == 0 || b.DesiredAreas.Intersects(offer.Areas),
		Distribution: b.Distribution == domain.DistributionRequired,
		Status:       b.Status.Class() == domain.StatusQualifying,
		PriceRange:   priceMatches(offer, b),
	}
	switch {
	case b.BrokerInquiry:
		d.Exclusion = domain.ExclusionBrokerInquiry
	case len(b.DesiredAreas) == 0 && b.DesiredPropertyType == domain.PropertyTypeNone:
		d.Exclusion = domain.ExclusionNoPreference
	case b.Status.Class() == domain.StatusExcluded:
		d.Exclusion = domain.ExclusionStatus
	case b.ContactKey == "":
		d.Exclusion = domain.ExclusionMissingContact
	}
	return d
}

// priceMatches: no type restriction means no price gate; otherwise the range
// for the property's type must exist and contain the price.
func priceMatches(offer domain.PropertyOffer, b domain.BuyerCriteria) bool {
	if b.DesiredPropertyType == domain.PropertyTypeNone {
		return true
	}
	r, ok := b.PriceRangeByType[offer.Type]
	return ok && r.Contains(offer.Price)
}

// Qualify evaluates every candidate. QualifiedContactKeys is deduplicated
// and sorted so identical input always yields identical output.
func (e *QualificationEngine) Qualify(offer domain.PropertyOffer, candidates []domain.BuyerCriteria) domain.MatchResult {
	res := domain.MatchResult{
		PropertyID:  offer.PropertyID,
		Diagnostics: make(map[string]domain.BuyerDiagnostics, len(candidates)),
	}
	seen := make(map[string]struct{})
	for _, b := range candidates {
		d := e.Evaluate(offer, b)
		res.Diagnostics[b.BuyerID] = d
		switch {
		case d.Exclusion != domain.ExclusionNone:
			observability.ObserveQualification(string(d.Exclusion))
			continue
		case !d.Qualified():
			observability.ObserveQualification("rejected")
			continue
		}
		observability.ObserveQualification("qualified")
		if _, dup := seen[b.ContactKey]; dup {
			continue
		}
		seen[b.ContactKey] = struct{}{}
		res.QualifiedContactKeys = append(res.QualifiedContactKeys, b.ContactKey)
	}
	sort.Strings(res.QualifiedContactKeys)
	if res.QualifiedContactKeys == nil {
		res.QualifiedContactKeys = []string{}
	}
	return res
}
