package app

import (
	"container/list"
	"sync"

	"estate_distribution/internal/domain"
)

// coordLRU is the batch-lifetime memory tier of the resolver. Entries stay
// until evicted by capacity; expiry belongs to the shared cache tier.
type coordLRU struct {
	mu   sync.Mutex
	cap  int
	lst  *list.List
	dict map[string]*list.Element
}

type coordEntry struct {
	k string
	v domain.Coordinate
}

func newCoordLRU(capacity int) *coordLRU {
	if capacity <= 0 {
		capacity = 10000
	}
	return &coordLRU{cap: capacity, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *coordLRU) Get(k string) (domain.Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return domain.Coordinate{}, false
	}
	c.lst.MoveToFront(e)
	return e.Value.(coordEntry).v, true
}

func (c *coordLRU) Set(k string, v domain.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = coordEntry{k: k, v: v}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(coordEntry{k: k, v: v})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(coordEntry).k)
		c.lst.Remove(back)
	}
}

func (c *coordLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
