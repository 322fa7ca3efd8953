package tablestore

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"estate_distribution/internal/adapters/fieldcodec"
	"estate_distribution/internal/domain"
)

/********** alias registries (single source of truth) **********/

var propertyAliases = map[string][]string{
	"address":  {"address", "所在地", "location", "address.full", "full_address"},
	"map_link": {"map_link", "google_map_url", "googleMapUrl", "map_url", "地図"},
	"city":     {"city", "市区町村", "municipality", "address.city"},
	"type":     {"property_type", "type", "種別", "物件種別"},
	"price":    {"price", "価格", "sale_price"},
	"areas":    {"distribution_areas", "配信エリア", "areas"},
	"lat":      {"latitude", "lat", "緯度", "location.lat"},
	"lng":      {"longitude", "lng", "lon", "経度", "location.lng"},
	"geo_key":  {"geo_key"},
}

var buyerAliases = map[string][]string{
	"email":        {"email", "メールアドレス", "mail", "contact.email"},
	"phone":        {"phone", "電話番号", "tel", "contact.phone"},
	"areas":        {"desired_areas", "希望エリア", "desired_area"},
	"type":         {"desired_property_type", "希望種別", "desired_type"},
	"price_land":   {"price_range_land", "土地価格帯"},
	"price_house":  {"price_range_house", "戸建価格帯"},
	"price_condo":  {"price_range_condo", "マンション価格帯"},
	"distribution": {"distribution", "配信希望", "distribution_type"},
	"status":       {"status", "ステータス", "追客状況"},
	"broker":       {"broker_inquiry", "業者問合せ"},
}

// write-side field names for SaveAssignment
const (
	fieldAreas  = "distribution_areas"
	fieldLat    = "latitude"
	fieldLng    = "longitude"
	fieldGeoKey = "geo_key"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps. A key that itself
// contains a dot is tried before descending.
func lookupAny(m map[string]any, path string) any {
	if v, ok := m[path]; ok {
		return v
	}
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the value at path as text, or "". Numbers are formatted;
// single-element lists (multi-select cells) are unwrapped.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "35,68").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstAmountFlexible: money amount from several paths ("4,500万", 45000000).
func firstAmountFlexible(m map[string]any, paths ...string) (int64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return int64(v), true
		case string:
			if n, ok := domain.ParseAmount(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// boolFlexible accepts checkbox booleans and the usual textual spellings.
func boolFlexible(m map[string]any, paths ...string) bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "y", "1", "on", "○", "◯", "✓", "有":
				return true
			}
		}
	}
	return false
}

/********** property mapper **********/

func mapProperty(r record) domain.Property {
	f := r.Fields
	loc := domain.PropertyLocation{
		PropertyID: r.ID,
		Address:    firstNonEmptyAlias(f, propertyAliases, "address"),
		MapLink:    firstNonEmptyAlias(f, propertyAliases, "map_link"),
		City:       firstNonEmptyAlias(f, propertyAliases, "city"),
		GeoKey:     firstNonEmptyAlias(f, propertyAliases, "geo_key"),
	}
	lat := getFloatFlexible(f, propertyAliases["lat"]...)
	lng := getFloatFlexible(f, propertyAliases["lng"]...)
	if lat != nil && lng != nil {
		if c := (domain.Coordinate{Lat: *lat, Lng: *lng}); c.Valid() {
			loc.Coordinate = &c
		}
	}

	rawType := firstNonEmptyAlias(f, propertyAliases, "type")
	pt, ok := domain.ParsePropertyType(rawType)
	if !ok {
		log.Warn().Str("property", r.ID).Str("type", rawType).Msg("unknown property type")
	}
	price, _ := firstAmountFlexible(f, propertyAliases["price"]...)

	return domain.Property{
		Location: loc,
		Type:     pt,
		Price:    price,
		Areas:    domain.DistributionAreaSet(domain.ParseGlyphs(firstNonEmptyAlias(f, propertyAliases, "areas"))),
	}
}

func assignmentFields(a domain.AreaAssignment) map[string]any {
	out := map[string]any{fieldAreas: a.Areas.String()}
	if a.Coordinate != nil {
		out[fieldLat] = a.Coordinate.Lat
		out[fieldLng] = a.Coordinate.Lng
		out[fieldGeoKey] = a.GeoKey
	}
	return out
}

/********** buyer mapper **********/

// mapBuyer decodes personal fields through codec; a field that fails to
// decode is treated as absent.
func mapBuyer(r record, codec fieldcodec.Codec) domain.BuyerCriteria {
	f := r.Fields
	decode := func(key string) string {
		v := firstNonEmptyAlias(f, buyerAliases, key)
		if v == "" {
			return ""
		}
		out, err := codec.Decode(v)
		if err != nil {
			log.Warn().Str("buyer", r.ID).Str("field", key).Err(err).Msg("personal field decode failed")
			return ""
		}
		return out
	}
	return domain.BuyerRecord{
		ID:                  r.ID,
		Email:               decode("email"),
		Phone:               decode("phone"),
		DesiredAreas:        firstNonEmptyAlias(f, buyerAliases, "areas"),
		DesiredPropertyType: firstNonEmptyAlias(f, buyerAliases, "type"),
		PriceRanges: map[domain.PropertyType]string{
			domain.PropertyTypeLand:  firstNonEmptyAlias(f, buyerAliases, "price_land"),
			domain.PropertyTypeHouse: firstNonEmptyAlias(f, buyerAliases, "price_house"),
			domain.PropertyTypeCondo: firstNonEmptyAlias(f, buyerAliases, "price_condo"),
		},
		Distribution:  firstNonEmptyAlias(f, buyerAliases, "distribution"),
		Status:        firstNonEmptyAlias(f, buyerAliases, "status"),
		BrokerInquiry: boolFlexible(f, buyerAliases["broker"]...),
	}.Criteria()
}
