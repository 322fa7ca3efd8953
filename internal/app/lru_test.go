package app

import (
	"testing"

	"estate_distribution/internal/domain"
)

func TestCoordLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newCoordLRU(2)
	c.Set("a", domain.Coordinate{Lat: 1, Lng: 1})
	c.Set("b", domain.Coordinate{Lat: 2, Lng: 2})
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should be present")
	}
	c.Set("c", domain.Coordinate{Lat: 3, Lng: 3})

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b was least recently used and should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v.Lat != 1 {
		t.Fatalf("a = %+v %v", v, ok)
	}
	c.Set("a", domain.Coordinate{Lat: 9, Lng: 9})
	if v, _ := c.Get("a"); v.Lat != 9 || c.Len() != 2 {
		t.Fatalf("overwrite failed: %+v len=%d", v, c.Len())
	}
}
