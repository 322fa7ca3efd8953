package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"estate_distribution/internal/adapters/observability"
	"estate_distribution/internal/area"
	"estate_distribution/internal/domain"
)

// CoordinateResolver is the part of GeoResolver the assigner depends on.
type CoordinateResolver interface {
	Resolve(ctx context.Context, loc domain.PropertyLocation) (Resolution, error)
}

// Breakdown is the per-layer view of one assignment, kept for audit.
type Breakdown struct {
	PropertyID string                     `json:"property_id"`
	CityWide   domain.DistributionAreaSet `json:"city_wide"`
	Overrides  domain.DistributionAreaSet `json:"overrides"`
	Radius     domain.DistributionAreaSet `json:"radius"`
	Distances  []area.AreaDistance        `json:"distances,omitempty"`
	Coordinate *domain.Coordinate         `json:"coordinate,omitempty"`
	GeoSource  Source                     `json:"geo_source,omitempty"`
	GeoError   string                     `json:"geo_error,omitempty"`
	Areas      domain.DistributionAreaSet `json:"areas"`

	resolution *Resolution
}

type AssignResult struct {
	Breakdown
	// Changed is true when the property repository was written.
	Changed bool `json:"changed"`
}

// Assigner unions the city-wide, override and radius layers into one
// canonical area set per property.
type Assigner struct {
	resolver  CoordinateResolver
	catalog   *area.Catalog
	overrides *area.AddressOverrides
	repo      domain.PropertyRepository
}

func NewAssigner(r CoordinateResolver, cat *area.Catalog, ov *area.AddressOverrides, repo domain.PropertyRepository) *Assigner {
	return &Assigner{resolver: r, catalog: cat, overrides: ov, repo: repo}
}

// Compute runs every layer without touching the repository. A geo failure
// only empties the radius layer.
func (a *Assigner) Compute(ctx context.Context, loc domain.PropertyLocation) Breakdown {
	b := Breakdown{PropertyID: loc.PropertyID}

	var coord *domain.Coordinate
	if a.resolver != nil {
		res, err := a.resolver.Resolve(ctx, loc)
		if err != nil {
			b.GeoError = err.Error()
			var gf *domain.GeoFailure
			if errors.As(err, &gf) {
				log.Warn().Str("property", loc.PropertyID).Str("key", gf.Key).Str("reason", gf.Reason).Err(gf.Err).Msg("geo failure; continuing with partial areas")
			} else {
				log.Warn().Str("property", loc.PropertyID).Err(err).Msg("geo failure; continuing with partial areas")
			}
		} else {
			c := res.Coordinate
			coord = &c
			b.Coordinate = coord
			b.GeoSource = res.Source
			b.resolution = &res
		}
	}

	b.CityWide = a.catalog.CityWideAreas(loc.City)
	if g, ok := a.overrides.Match(loc.Address); ok {
		b.Overrides = a.catalog.Canonical(a.catalog.ActiveOnly(g)...)
	}
	radiusDefs := a.catalog.RadiusAreas()
	b.Radius = a.catalog.Canonical(area.AreasWithin(coord, radiusDefs)...)
	b.Distances = area.Distances(coord, radiusDefs)

	all := make([]domain.AreaGlyph, 0, len(b.CityWide)+len(b.Overrides)+len(b.Radius))
	all = append(all, b.CityWide...)
	all = append(all, b.Overrides...)
	all = append(all, b.Radius...)
	b.Areas = a.catalog.Canonical(all...)
	return b
}

// Assign recomputes p's areas and writes them back in one call when they, or
// the coordinate, changed. Re-running on an unchanged property writes nothing.
func (a *Assigner) Assign(ctx context.Context, p domain.Property) (AssignResult, error) {
	b := a.Compute(ctx, p.Location)
	out := AssignResult{Breakdown: b}

	w := domain.AreaAssignment{PropertyID: p.ID(), Areas: b.Areas}
	needWrite := !b.Areas.Equal(p.Areas)
	// a fresh coordinate, or a stored one that has no key yet, is written
	// together with its key
	if r := b.resolution; r != nil && (r.Fresh() || r.Key != p.Location.GeoKey) {
		c := r.Coordinate
		w.Coordinate, w.GeoKey = &c, r.Key
		needWrite = true
	}
	if !needWrite {
		observability.ObserveAssignment("unchanged")
		return out, nil
	}
	if err := a.repo.SaveAssignment(ctx, w); err != nil {
		observability.ObserveAssignment("error")
		log.Error().Err(err).Str("property", p.ID()).Msg("save assignment failed")
		return out, fmt.Errorf("save assignment %s: %w", p.ID(), err)
	}
	out.Changed = true
	observability.ObserveAssignment("changed")
	log.Info().Str("property", p.ID()).Str("areas", b.Areas.String()).Bool("coordinate", w.Coordinate != nil).Msg("areas assigned")
	return out, nil
}

// AssignByID loads the property and assigns it.
func (a *Assigner) AssignByID(ctx context.Context, id string) (AssignResult, error) {
	p, err := a.repo.GetProperty(ctx, id)
	if err != nil {
		return AssignResult{}, err
	}
	return a.Assign(ctx, p)
}

// Explain loads the property and returns the breakdown without writing.
func (a *Assigner) Explain(ctx context.Context, id string) (Breakdown, error) {
	p, err := a.repo.GetProperty(ctx, id)
	if err != nil {
		return Breakdown{}, err
	}
	return a.Compute(ctx, p.Location), nil
}

func (a *Assigner) Catalog() *area.Catalog { return a.catalog }
