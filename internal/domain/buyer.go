package domain

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

type DistributionFlag int

const (
	DistributionNotRequired DistributionFlag = iota
	DistributionRequired
)

func (f DistributionFlag) String() string {
	if f == DistributionRequired {
		return "required"
	}
	return "not_required"
}

// ParseDistributionFlag is strict: only explicit opt-in values mean Required.
func ParseDistributionFlag(s string) DistributionFlag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required", "true", "yes", "y", "1", "on", "要", "希望", "○", "◯", "✓":
		return DistributionRequired
	}
	return DistributionNotRequired
}

type BuyerStatus string

const (
	StatusActive       BuyerStatus = "active"
	StatusFollowingUp  BuyerStatus = "following_up"
	StatusPaused       BuyerStatus = "paused"
	StatusContracted   BuyerStatus = "contracted"
	StatusDoNotContact BuyerStatus = "do_not_contact"
	StatusDuplicate    BuyerStatus = "duplicate"
	StatusUnknown      BuyerStatus = "unknown"
)

// StatusClass partitions every status value into exactly one class.
type StatusClass int

const (
	// StatusQualifying passes the status check.
	StatusQualifying StatusClass = iota
	// StatusNonQualifying fails the status check only.
	StatusNonQualifying
	// StatusExcluded fails the status check and excludes the buyer outright.
	StatusExcluded
)

func (s BuyerStatus) Class() StatusClass {
	switch s {
	case StatusActive, StatusFollowingUp:
		return StatusQualifying
	case StatusDoNotContact, StatusDuplicate:
		return StatusExcluded
	}
	return StatusNonQualifying
}

var statusAliases = map[string]BuyerStatus{
	"active":         StatusActive,
	"追客中":            StatusActive,
	"following_up":   StatusFollowingUp,
	"following up":   StatusFollowingUp,
	"follow":         StatusFollowingUp,
	"フォロー中":          StatusFollowingUp,
	"paused":         StatusPaused,
	"休止":             StatusPaused,
	"contracted":     StatusContracted,
	"成約":             StatusContracted,
	"do_not_contact": StatusDoNotContact,
	"do not contact": StatusDoNotContact,
	"配信停止":           StatusDoNotContact,
	"duplicate":      StatusDuplicate,
	"重複":             StatusDuplicate,
}

// ParseBuyerStatus never fails; unrecognized values become StatusUnknown.
func ParseBuyerStatus(s string) BuyerStatus {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return StatusUnknown
}

// PriceRange is an inclusive range. A missing ceiling is open-ended.
// Invalid ranges contain nothing.
type PriceRange struct {
	Min    int64 `json:"min"`
	Max    int64 `json:"max,omitempty"`
	HasMax bool  `json:"has_max"`
	Valid  bool  `json:"valid"`
}

func (r PriceRange) Contains(price int64) bool {
	if !r.Valid || price < r.Min {
		return false
	}
	return !r.HasMax || price <= r.Max
}

// ParsePriceRange accepts "min~max", "min-max", "~max" and "min~" with optional
// thousands separators and 万/億 units. Anything else yields an invalid range.
func ParsePriceRange(s string) PriceRange {
	s = normalizeNumeric(s)
	for _, sep := range []string{"〜", "～", "-", "ー", "−"} {
		s = strings.ReplaceAll(s, sep, "~")
	}
	parts := strings.Split(s, "~")
	if len(parts) != 2 {
		return PriceRange{}
	}
	lo, hi := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if lo == "" && hi == "" {
		return PriceRange{}
	}
	var r PriceRange
	if lo != "" {
		v, ok := parseAmount(lo)
		if !ok {
			return PriceRange{}
		}
		r.Min = v
	}
	if hi != "" {
		v, ok := parseAmount(hi)
		if !ok {
			return PriceRange{}
		}
		r.Max, r.HasMax = v, true
	}
	if r.HasMax && r.Min > r.Max {
		return PriceRange{}
	}
	r.Valid = true
	return r
}

// ParseAmount reads one money amount ("4,500万", "１億", "38000000").
func ParseAmount(s string) (int64, bool) {
	s = normalizeNumeric(s)
	if s == "" {
		return 0, false
	}
	return parseAmount(s)
}

func parseAmount(s string) (int64, bool) {
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "億"):
		mult, s = 1e8, strings.TrimSuffix(s, "億")
	case strings.HasSuffix(s, "万"):
		mult, s = 1e4, strings.TrimSuffix(s, "万")
	}
	if !isDecimal(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v := math.Round(f * mult)
	// float64(MaxInt64) rounds up to 2^63, which no longer fits
	if v >= float64(math.MaxInt64) {
		return 0, false
	}
	return int64(v), true
}

// isDecimal accepts digits with at most one decimal point: no sign, exponent
// or special values.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// normalizeNumeric folds full-width digits and drops separators and currency marks.
func normalizeNumeric(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '．':
			return '.'
		case r == ',' || r == '，' || r == '円' || r == '¥' || r == '￥' || unicode.IsSpace(r):
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// BuyerCriteria is the read-only matching view of one buyer record.
type BuyerCriteria struct {
	BuyerID             string                      `json:"buyer_id"`
	ContactKey          string                      `json:"contact_key"`
	DesiredAreas        GlyphSet                    `json:"-"`
	DesiredPropertyType PropertyType                `json:"desired_property_type"`
	PriceRangeByType    map[PropertyType]PriceRange `json:"price_range_by_type"`
	Distribution        DistributionFlag            `json:"distribution"`
	Status              BuyerStatus                 `json:"status"`
	BrokerInquiry       bool                        `json:"broker_inquiry"`
}

// NormalizeContactKey lower-cases emails and reduces phone numbers to digits
// (keeping a leading +). Returns "" when nothing usable remains.
func NormalizeContactKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "@") || strings.Contains(s, "＠") {
		return strings.ToLower(strings.ReplaceAll(s, "＠", "@"))
	}
	var b strings.Builder
	for i, r := range []rune(normalizeNumeric(s)) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case (r == '+' || r == '＋') && i == 0:
			b.WriteRune('+')
		}
	}
	out := b.String()
	if strings.TrimPrefix(out, "+") == "" {
		return ""
	}
	return out
}

// BuyerRecord is the text form of a buyer row as stored upstream, with
// personal fields already decoded.
type BuyerRecord struct {
	ID                  string
	Email               string
	Phone               string
	DesiredAreas        string
	DesiredPropertyType string
	PriceRanges         map[PropertyType]string
	Distribution        string
	Status              string
	BrokerInquiry       bool
}

// Criteria parses the record. Malformed fields become values that fail their
// check; nothing here returns an error.
func (r BuyerRecord) Criteria() BuyerCriteria {
	key := NormalizeContactKey(r.Email)
	if key == "" {
		key = NormalizeContactKey(r.Phone)
	}
	pt, ok := ParsePropertyType(r.DesiredPropertyType)
	if !ok {
		// an unrecognized preference is still a preference; it just never matches
		pt = PropertyType("unknown:" + strings.TrimSpace(r.DesiredPropertyType))
	}
	ranges := make(map[PropertyType]PriceRange, len(r.PriceRanges))
	for t, s := range r.PriceRanges {
		if strings.TrimSpace(s) == "" {
			continue
		}
		ranges[t] = ParsePriceRange(s)
	}
	return BuyerCriteria{
		BuyerID:             r.ID,
		ContactKey:          key,
		DesiredAreas:        NewGlyphSet(ParseGlyphs(r.DesiredAreas)...),
		DesiredPropertyType: pt,
		PriceRangeByType:    ranges,
		Distribution:        ParseDistributionFlag(r.Distribution),
		Status:              ParseBuyerStatus(r.Status),
		BrokerInquiry:       r.BrokerInquiry,
	}
}
