package domain

import "context"

type PropertyRepository interface {
	GetProperty(ctx context.Context, id string) (Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	// SaveAssignment replaces the stored area set (and coordinate, when set) in one write.
	SaveAssignment(ctx context.Context, a AreaAssignment) error
}

type BuyerRepository interface {
	ListBuyers(ctx context.Context) ([]BuyerCriteria, error)
}

// Geocoder maps a free-form address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinate, error)
}

// LinkExpander resolves a short map link to the long URL it redirects to.
type LinkExpander interface {
	Expand(ctx context.Context, link string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
