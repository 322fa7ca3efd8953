package domain

import "strings"

type PropertyType string

const (
	PropertyTypeNone  PropertyType = ""
	PropertyTypeLand  PropertyType = "land"
	PropertyTypeHouse PropertyType = "house"
	PropertyTypeCondo PropertyType = "condo"
)

// PropertyTypes lists the types that carry a buyer price range.
var PropertyTypes = []PropertyType{PropertyTypeLand, PropertyTypeHouse, PropertyTypeCondo}

var propertyTypeAliases = map[string]PropertyType{
	"land":        PropertyTypeLand,
	"土地":          PropertyTypeLand,
	"house":       PropertyTypeHouse,
	"戸建":          PropertyTypeHouse,
	"戸建て":         PropertyTypeHouse,
	"一戸建て":        PropertyTypeHouse,
	"condo":       PropertyTypeCondo,
	"apartment":   PropertyTypeCondo,
	"mansion":     PropertyTypeCondo,
	"マンション":       PropertyTypeCondo,
	"区分マンション":     PropertyTypeCondo,
	"condominium": PropertyTypeCondo,
}

// ParsePropertyType maps a raw type label to a known type.
// Empty input yields (PropertyTypeNone, true).
func ParsePropertyType(s string) (PropertyType, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	if k == "" {
		return PropertyTypeNone, true
	}
	t, ok := propertyTypeAliases[k]
	return t, ok
}

// PropertyLocation is the geographic input of area assignment.
// GeoKey is the normalized key the stored Coordinate was derived from.
type PropertyLocation struct {
	PropertyID string      `json:"property_id"`
	Address    string      `json:"address"`
	MapLink    string      `json:"map_link,omitempty"`
	City       string      `json:"city,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	GeoKey     string      `json:"geo_key,omitempty"`
}

type Property struct {
	Location PropertyLocation
	Type     PropertyType
	Price    int64
	Areas    DistributionAreaSet
}

func (p Property) ID() string { return p.Location.PropertyID }

// Offer is the view of a property the qualification engine needs.
func (p Property) Offer() PropertyOffer {
	return PropertyOffer{PropertyID: p.ID(), Areas: p.Areas, Type: p.Type, Price: p.Price}
}

// AreaAssignment is one atomic write back to the property repository.
// Coordinate is nil unless it was newly resolved.
type AreaAssignment struct {
	PropertyID string
	Areas      DistributionAreaSet
	Coordinate *Coordinate
	GeoKey     string
}
