// Package crimes fetches street-level crime records for an area, normalizes
// them into canonical incident rows and aggregates per-category totals.
package crimes

import (
	"context"
	"errors"

	"streetcrime/internal/cache"
	"streetcrime/internal/types"
)

// ErrNoIncidents is the explicit empty indicator: the inputs were valid and
// zero qualifying incidents remain. It is distinct from a failed fetch.
var ErrNoIncidents = errors.New("crimes: no incidents")

// IncidentSource is the area-and-date search of the remote API.
type IncidentSource interface {
	SearchIncidentsInArea(ctx context.Context, boundary types.Polygon, period string) ([]types.RawIncident, error)
}

// Fetcher is a memoized pass-through to the remote area search. It performs
// no retries; those belong to the HTTP client.
type Fetcher struct {
	src   IncidentSource
	cache *cache.Cache
}

// NewFetcher creates a Fetcher.
func NewFetcher(src IncidentSource, c *cache.Cache) *Fetcher {
	return &Fetcher{src: src, cache: c}
}

// Fetch returns the raw incidents inside boundary for period, keyed in the
// cache by a digest of the boundary and the period.
func (f *Fetcher) Fetch(ctx context.Context, boundary types.Polygon, period string) ([]types.RawIncident, error) {
	key := cache.Key("crimes", cache.PolygonDigest(boundary), period)
	return cache.GetOrCompute(ctx, f.cache, key, func(ctx context.Context) ([]types.RawIncident, error) {
		return f.src.SearchIncidentsInArea(ctx, boundary, period)
	})
}
