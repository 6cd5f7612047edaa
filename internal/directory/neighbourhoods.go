package directory

import (
	"context"
	"log/slog"

	"streetcrime/internal/cache"
	"streetcrime/internal/types"
)

// NeighbourhoodSource is the part of the remote API the resolver uses.
type NeighbourhoodSource interface {
	ListNeighbourhoods(ctx context.Context, forceID string) ([]types.NeighbourhoodStub, error)
	GetNeighbourhoodDetail(ctx context.Context, forceID, neighbourhoodID string) (*types.NeighbourhoodDetail, error)
}

// NeighbourhoodResolver resolves (force id, neighbourhood name) pairs.
// Results are memoized; unknown names are reported as ErrNotFound and only
// upstream failures are returned as hard errors.
type NeighbourhoodResolver struct {
	src    NeighbourhoodSource
	cache  *cache.Cache
	logger *slog.Logger
}

// NewNeighbourhoodResolver creates a resolver.
func NewNeighbourhoodResolver(src NeighbourhoodSource, c *cache.Cache, logger *slog.Logger) *NeighbourhoodResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &NeighbourhoodResolver{src: src, cache: c, logger: logger}
}

// List returns the force's neighbourhoods in source order.
func (r *NeighbourhoodResolver) List(ctx context.Context, forceID string) ([]types.NeighbourhoodStub, error) {
	if forceID == "" {
		return nil, ErrUnresolved
	}
	stubs, err := cache.GetOrCompute(ctx, r.cache, cache.Key("neighbourhoods", forceID), func(ctx context.Context) ([]types.NeighbourhoodStub, error) {
		return r.src.ListNeighbourhoods(ctx, forceID)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stubs, nil
}

// ResolveID finds the neighbourhood id by exact name. The list is scanned in
// source order and the first match wins.
func (r *NeighbourhoodResolver) ResolveID(ctx context.Context, forceID, name string) (string, error) {
	if forceID == "" || name == "" {
		return "", ErrUnresolved
	}
	stubs, err := r.List(ctx, forceID)
	if err != nil {
		return "", err
	}
	for _, s := range stubs {
		if s.Name == name {
			return s.ID, nil
		}
	}
	return "", ErrNotFound
}

// Resolve returns the neighbourhood with its boundary and centroid. It
// returns ErrUnresolved when either input is empty and ErrNotFound when the
// name does not exist in the force.
func (r *NeighbourhoodResolver) Resolve(ctx context.Context, forceID, name string) (types.Neighbourhood, error) {
	if forceID == "" || name == "" {
		return types.Neighbourhood{}, ErrUnresolved
	}

	return cache.GetOrCompute(ctx, r.cache, cache.Key("neighbourhood", forceID, name), func(ctx context.Context) (types.Neighbourhood, error) {
		id, err := r.ResolveID(ctx, forceID, name)
		if err != nil {
			return types.Neighbourhood{}, err
		}

		detail, err := r.src.GetNeighbourhoodDetail(ctx, forceID, id)
		if err != nil {
			if isNotFound(err) {
				r.logger.WarnContext(ctx, "neighbourhood listed but detail missing",
					"force_id", forceID,
					"neighbourhood_id", id,
				)
				return types.Neighbourhood{}, ErrNotFound
			}
			return types.Neighbourhood{}, err
		}

		return types.Neighbourhood{
			ID:       id,
			Name:     name,
			ForceID:  forceID,
			Boundary: detail.Boundary,
			Centroid: detail.Centroid,
		}, nil
	})
}
