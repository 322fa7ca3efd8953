package domain

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid rejects out-of-range values and the (0,0) placeholder that
// geocoders and spreadsheets emit for "unknown".
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return false
	}
	return !(c.Lat == 0 && c.Lng == 0)
}
