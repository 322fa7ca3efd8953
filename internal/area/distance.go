package area

import (
	"math"

	"estate_distribution/internal/domain"
)

const earthRadiusKm = 6371.0

// boundaryToleranceKm absorbs float noise so a point placed exactly on the
// radius stays inside it.
const boundaryToleranceKm = 1e-9

// HaversineKm is the great-circle distance between a and b in kilometers.
func HaversineKm(a, b domain.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// AreaDistance is one row of the debug breakdown.
type AreaDistance struct {
	Area       domain.AreaGlyph `json:"area"`
	DistanceKm float64          `json:"distance_km"`
	RadiusKm   float64          `json:"radius_km"`
	Within     bool             `json:"within"`
}

// AreasWithin returns the radius-based areas whose center lies within
// radius of coord (boundary inclusive). A nil coord yields nothing.
func AreasWithin(coord *domain.Coordinate, defs []domain.AreaDefinition) []domain.AreaGlyph {
	var out []domain.AreaGlyph
	for _, d := range Distances(coord, defs) {
		if d.Within {
			out = append(out, d.Area)
		}
	}
	return out
}

// Distances is the debug variant of AreasWithin, reporting every
// radius-based definition with its distance.
func Distances(coord *domain.Coordinate, defs []domain.AreaDefinition) []AreaDistance {
	if coord == nil || !coord.Valid() {
		return nil
	}
	out := make([]AreaDistance, 0, len(defs))
	for _, d := range defs {
		rb, ok := d.Scope.(domain.RadiusBased)
		if !ok {
			continue
		}
		dist := HaversineKm(*coord, rb.Center)
		out = append(out, AreaDistance{
			Area:       d.ID,
			DistanceKm: dist,
			RadiusKm:   rb.RadiusKm,
			Within:     dist <= rb.RadiusKm+boundaryToleranceKm,
		})
	}
	return out
}
