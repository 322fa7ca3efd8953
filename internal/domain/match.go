package domain

type ExclusionReason string

const (
	ExclusionNone           ExclusionReason = ""
	ExclusionBrokerInquiry  ExclusionReason = "broker_inquiry"
	ExclusionNoPreference   ExclusionReason = "no_preference"
	ExclusionStatus         ExclusionReason = "excluded_status"
	ExclusionMissingContact ExclusionReason = "missing_contact"
)

// PropertyOffer is what the qualification engine evaluates buyers against.
type PropertyOffer struct {
	PropertyID string
	Areas      DistributionAreaSet
	Type       PropertyType
	Price      int64
}

// BuyerDiagnostics records each check for audit. Only Qualified decides.
type BuyerDiagnostics struct {
	Geography    bool            `json:"geography"`
	Distribution bool            `json:"distribution"`
	Status       bool            `json:"status"`
	PriceRange   bool            `json:"price_range"`
	Exclusion    ExclusionReason `json:"exclusion,omitempty"`
}

func (d BuyerDiagnostics) Qualified() bool {
	return d.Exclusion == ExclusionNone && d.Geography && d.Distribution && d.Status && d.PriceRange
}

type MatchResult struct {
	PropertyID           string                      `json:"property_id"`
	QualifiedContactKeys []string                    `json:"qualified_contact_keys"`
	Diagnostics          map[string]BuyerDiagnostics `json:"diagnostics,omitempty"`
}
