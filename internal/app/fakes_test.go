package app_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"estate_distribution/internal/domain"
)

// ---- fakes ----

type fakePropRepo struct {
	mu      sync.Mutex
	props   map[string]domain.Property
	order   []string
	saves   []domain.AreaAssignment
	failFor map[string]error
}

func newFakePropRepo(ps ...domain.Property) *fakePropRepo {
	r := &fakePropRepo{props: map[string]domain.Property{}}
	for _, p := range ps {
		r.props[p.ID()] = p
		r.order = append(r.order, p.ID())
	}
	return r
}

func (r *fakePropRepo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *fakePropRepo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Property, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.props[id])
	}
	return out, nil
}

func (r *fakePropRepo) SaveAssignment(ctx context.Context, a domain.AreaAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[a.PropertyID]; err != nil {
		return err
	}
	r.saves = append(r.saves, a)
	p := r.props[a.PropertyID]
	p.Areas = a.Areas
	if a.Coordinate != nil {
		c := *a.Coordinate
		p.Location.Coordinate = &c
		p.Location.GeoKey = a.GeoKey
	}
	r.props[a.PropertyID] = p
	return nil
}

func (r *fakePropRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

type fakeBuyerRepo struct {
	buyers []domain.BuyerCriteria
	err    error
}

func (r *fakeBuyerRepo) ListBuyers(ctx context.Context) ([]domain.BuyerCriteria, error) {
	return r.buyers, r.err
}

// fakeGeocoder answers from a table. errs, when set, is consumed one per call
// before the table is consulted.
type fakeGeocoder struct {
	mu     sync.Mutex
	coords map[string]domain.Coordinate
	errs   []error
	delay  time.Duration
	block  bool
	calls  int32
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinate, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.block {
		<-ctx.Done()
		return domain.Coordinate{}, ctx.Err()
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return domain.Coordinate{}, err
		}
	}
	c, ok := g.coords[address]
	if !ok {
		return domain.Coordinate{}, domain.ErrNoResult
	}
	return c, nil
}

func (g *fakeGeocoder) Calls() int { return int(atomic.LoadInt32(&g.calls)) }

type fakeExpander struct {
	target string
	err    error
	calls  int32
}

func (e *fakeExpander) Expand(ctx context.Context, link string) (string, error) {
	atomic.AddInt32(&e.calls, 1)
	return e.target, e.err
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]domain.Coordinate
	ttls  map[string]int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	d, ok := dst.(*domain.Coordinate)
	if !ok {
		return false, errors.New("unexpected dst type")
	}
	*d = v
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]domain.Coordinate{}
		c.ttls = map[string]int{}
	}
	c.store[key] = v.(domain.Coordinate)
	c.ttls[key] = ttlSec
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// ---- helpers ----

// destination walks km along bearing from c on the same sphere the
// distance calculator uses.
func destination(c domain.Coordinate, bearingDeg, km float64) domain.Coordinate {
	const r = 6371.0
	d := km / r
	th := bearingDeg * math.Pi / 180
	p1 := c.Lat * math.Pi / 180
	l1 := c.Lng * math.Pi / 180
	p2 := math.Asin(math.Sin(p1)*math.Cos(d) + math.Cos(p1)*math.Sin(d)*math.Cos(th))
	l2 := l1 + math.Atan2(math.Sin(th)*math.Sin(d)*math.Cos(p1), math.Cos(d)-math.Sin(p1)*math.Sin(p2))
	return domain.Coordinate{Lat: p2 * 180 / math.Pi, Lng: l2 * 180 / math.Pi}
}
