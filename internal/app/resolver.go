package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"estate_distribution/internal/adapters/observability"
	"estate_distribution/internal/domain"
	"estate_distribution/internal/shared"
)

// Source tells where a resolved coordinate came from.
type Source string

const (
	SourceStored   Source = "stored"
	SourceLink     Source = "link"
	SourceMemory   Source = "memory"
	SourceCache    Source = "cache"
	SourceGeocoder Source = "geocoder"
)

type Resolution struct {
	Coordinate domain.Coordinate `json:"coordinate"`
	Key        string            `json:"key"`
	Source     Source            `json:"source"`
}

// Fresh is true when the coordinate was not already persisted with the property.
func (r Resolution) Fresh() bool { return r.Source != SourceStored }

type ResolverConfig struct {
	// Attempts bounds geocoder calls per address (transient errors only).
	Attempts int
	// CallTimeout bounds each geocoder call.
	CallTimeout time.Duration
	BaseBackoff time.Duration
	// CacheTTL applies to the shared cache tier; the memory tier lives as
	// long as the resolver.
	CacheTTL      time.Duration
	MemoryEntries int
}

func (c *ResolverConfig) defaults() {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 200 * time.Millisecond
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * 24 * time.Hour
	}
}

type ResolverOption func(*GeoResolver)

// WithLinkExpander enables short-link expansion before falling back to the address.
func WithLinkExpander(e domain.LinkExpander) ResolverOption {
	return func(r *GeoResolver) { r.expander = e }
}

// WithCache adds a shared cache tier (redis) behind the memory tier.
func WithCache(c domain.Cache) ResolverOption {
	return func(r *GeoResolver) { r.cache = c }
}

// GeoResolver turns a property's map link or address into a coordinate.
// It is safe for concurrent use by batch workers.
type GeoResolver struct {
	geocoder domain.Geocoder
	expander domain.LinkExpander
	cache    domain.Cache
	cfg      ResolverConfig
	mem      *coordLRU
	group    singleflight.Group
}

func NewGeoResolver(g domain.Geocoder, cfg ResolverConfig, opts ...ResolverOption) *GeoResolver {
	cfg.defaults()
	r := &GeoResolver{geocoder: g, cfg: cfg, mem: newCoordLRU(cfg.MemoryEntries)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve never panics; every failure is a *domain.GeoFailure.
func (r *GeoResolver) Resolve(ctx context.Context, loc domain.PropertyLocation) (Resolution, error) {
	key := GeoKey(loc)

	// 1) stored coordinate still matches its inputs. An unkeyed one is
	// trusted once and reported with the current key, so the caller can
	// record it and later address changes are detected.
	if loc.Coordinate != nil && loc.Coordinate.Valid() && (loc.GeoKey == "" || loc.GeoKey == key) {
		return r.done(Resolution{Coordinate: *loc.Coordinate, Key: key, Source: SourceStored}, nil)
	}
	if key == "" {
		return r.done(Resolution{}, &domain.GeoFailure{Key: loc.PropertyID, Reason: "no address or map link", Err: domain.ErrNoResult})
	}

	// 2) coordinates embedded in the link
	if link := strings.TrimSpace(loc.MapLink); link != "" {
		if c, ok := CoordinateFromLink(link); ok {
			return r.done(Resolution{Coordinate: c, Key: key, Source: SourceLink}, nil)
		}
		if IsShortLink(link) && r.expander != nil {
			if c, src, ok := r.expandLink(ctx, link); ok {
				return r.done(Resolution{Coordinate: c, Key: key, Source: src}, nil)
			}
		}
	}

	// 3) address geocoding through the cache tiers
	addr := NormalizeKey(loc.Address)
	if addr == "" {
		return r.done(Resolution{}, &domain.GeoFailure{Key: key, Reason: "map link has no coordinate and address is empty", Err: domain.ErrNoResult})
	}
	c, src, err := r.lookup(ctx, "addr:"+addr, func(ctx context.Context) (domain.Coordinate, error) {
		return r.geocode(ctx, strings.TrimSpace(loc.Address))
	})
	if err != nil {
		return r.done(Resolution{Key: key, Source: SourceGeocoder}, &domain.GeoFailure{Key: key, Reason: "geocode", Err: err})
	}
	return r.done(Resolution{Coordinate: c, Key: key, Source: src}, nil)
}

func (r *GeoResolver) done(res Resolution, err error) (Resolution, error) {
	src := string(res.Source)
	if src == "" {
		src = "none"
	}
	observability.ObserveGeo(src, err)
	return res, err
}

// expandLink follows a short link once and looks for coordinates in the target.
// Failures fall through to address geocoding.
func (r *GeoResolver) expandLink(ctx context.Context, link string) (domain.Coordinate, Source, bool) {
	c, src, err := r.lookup(ctx, "link:"+NormalizeKey(link), func(ctx context.Context) (domain.Coordinate, error) {
		cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
		target, err := r.expander.Expand(cctx, link)
		if err != nil {
			return domain.Coordinate{}, err
		}
		if c, ok := CoordinateFromLink(target); ok {
			return c, nil
		}
		return domain.Coordinate{}, fmt.Errorf("expanded link %q: %w", target, domain.ErrNoResult)
	})
	if err != nil {
		log.Debug().Err(err).Str("link", link).Msg("short link expansion gave no coordinate")
		return domain.Coordinate{}, "", false
	}
	if src == SourceGeocoder {
		src = SourceLink
	}
	return c, src, true
}

// lookup checks memory, then the shared cache, then calls fetch. Concurrent
// callers for one key share a single fetch.
func (r *GeoResolver) lookup(ctx context.Context, key string, fetch func(context.Context) (domain.Coordinate, error)) (domain.Coordinate, Source, error) {
	if c, ok := r.mem.Get(key); ok {
		observability.ObserveCache("memory", "hit")
		return c, SourceMemory, nil
	}
	observability.ObserveCache("memory", "miss")

	type result struct {
		c   domain.Coordinate
		src Source
	}
	// the shared fetch must not inherit one caller's cancellation; every
	// external call below is bounded by CallTimeout instead
	fctx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if c, ok := r.mem.Get(key); ok {
			return result{c, SourceMemory}, nil
		}
		if r.cache != nil {
			var c domain.Coordinate
			ok, err := r.cache.Get(fctx, "geo:"+key, &c)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("geo cache read failed")
			} else if ok && c.Valid() {
				r.mem.Set(key, c)
				return result{c, SourceCache}, nil
			}
		}
		c, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		r.mem.Set(key, c)
		observability.ObserveCache("memory", "set")
		if r.cache != nil {
			if err := r.cache.Set(fctx, "geo:"+key, c, int(r.cfg.CacheTTL/time.Second)); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("geo cache write failed")
			}
		}
		return result{c, SourceGeocoder}, nil
	})
	select {
	case <-ctx.Done():
		return domain.Coordinate{}, "", ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return domain.Coordinate{}, "", out.Err
		}
		res := out.Val.(result)
		return res.c, res.src, nil
	}
}

// geocode retries transient failures with jittered exponential backoff.
// Each call gets its own timeout so one stuck request cannot stall a batch.
func (r *GeoResolver) geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	if r.geocoder == nil {
		return domain.Coordinate{}, fmt.Errorf("no geocoder configured: %w", domain.ErrGeocodeRejected)
	}
	var lastErr error
	for i := 0; i < r.cfg.Attempts; i++ {
		cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		c, err := r.geocoder.Geocode(cctx, address)
		cancel()
		if err == nil {
			if !c.Valid() {
				return domain.Coordinate{}, fmt.Errorf("geocoder returned %v,%v: %w", c.Lat, c.Lng, domain.ErrInvalidCoordinate)
			}
			return c, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return domain.Coordinate{}, ctx.Err()
		}
		if !transient(err) {
			return domain.Coordinate{}, err
		}
		if i < r.cfg.Attempts-1 && !shared.SleepCtx(ctx, shared.Backoff(r.cfg.BaseBackoff, i)) {
			return domain.Coordinate{}, ctx.Err()
		}
	}
	return domain.Coordinate{}, fmt.Errorf("after %d attempts: %w", r.cfg.Attempts, lastErr)
}

func transient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNoResult),
		errors.Is(err, domain.ErrGeocodeRejected),
		errors.Is(err, domain.ErrInvalidCoordinate):
		return false
	}
	return true
}
