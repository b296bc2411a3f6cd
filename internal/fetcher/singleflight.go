package fetcher

import (
	"golang.org/x/sync/singleflight"
)

// Group collapses concurrent fetches of the same URL into one round trip.
type Group struct {
	g singleflight.Group
}

func (g *Group) Do(key string, fn func() cacheEntry) (cacheEntry, bool) {
	v, _, shared := g.g.Do(key, func() (interface{}, error) {
		return fn(), nil
	})
	return v.(cacheEntry), shared
}
