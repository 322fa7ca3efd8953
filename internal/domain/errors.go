package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNoResult             = errors.New("geocode: no result")
	ErrQuotaExceeded        = errors.New("geocode: quota exceeded")
	ErrGeocodeRejected      = errors.New("geocode: request rejected")
	ErrInvalidCoordinate    = errors.New("invalid coordinate")
	ErrCatalogMisconfigured = errors.New("area catalog misconfigured")
)

// GeoFailure means no coordinate could be produced for a property.
// It is never fatal: assignment continues with the layers that remain.
type GeoFailure struct {
	Key    string
	Reason string
	Err    error
}

func (e *GeoFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geo failure for %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("geo failure for %q: %s", e.Key, e.Reason)
}

func (e *GeoFailure) Unwrap() error { return e.Err }

// CatalogMisconfiguration is raised at load time and must stop the process
// before any property is assigned.
type CatalogMisconfiguration struct {
	Area    string
	Problem string
}

func (e *CatalogMisconfiguration) Error() string {
	if e.Area == "" {
		return "area catalog: " + e.Problem
	}
	return fmt.Sprintf("area catalog: %s: %s", e.Area, e.Problem)
}

func (e *CatalogMisconfiguration) Unwrap() error { return ErrCatalogMisconfigured }
