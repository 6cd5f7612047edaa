package external

import (
	"context"

	"streetcrime/internal/types"
)

// CrimeDataSource is the remote crime data API. Implementations return
// *types.AppError values: not_found_* for unknown ids and upstream_* for
// transport, timeout and decoding failures.
type CrimeDataSource interface {
	// ListAvailablePeriods returns the months with published data, newest first.
	ListAvailablePeriods(ctx context.Context) ([]string, error)

	ListForces(ctx context.Context) ([]types.PoliceForce, error)

	GetForceDetail(ctx context.Context, forceID string) (*types.ForceDetail, error)

	ListNeighbourhoods(ctx context.Context, forceID string) ([]types.NeighbourhoodStub, error)

	// GetNeighbourhoodDetail returns the boundary polygon and centre point.
	GetNeighbourhoodDetail(ctx context.Context, forceID, neighbourhoodID string) (*types.NeighbourhoodDetail, error)

	// SearchIncidentsInArea returns all street-level crimes inside boundary
	// for the given "YYYY-MM" period.
	SearchIncidentsInArea(ctx context.Context, boundary types.Polygon, period string) ([]types.RawIncident, error)
}
