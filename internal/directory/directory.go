// Package directory resolves the names a user picks (force, neighbourhood,
// period) into the identifiers and geometry the crime search needs.
//
// ForceDirectory and PeriodCatalog are loaded once at startup and are
// read-only afterwards. NeighbourhoodResolver resolves lazily through the
// memoization cache.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"streetcrime/internal/cache"
	"streetcrime/internal/external"
	"streetcrime/internal/types"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound reports that a force or neighbourhood name has no match.
	// Callers treat it as "not selected yet", never as a failure.
	ErrNotFound = errors.New("directory: not found")

	// ErrUnresolved reports that resolution could not start because the force
	// or neighbourhood was not supplied.
	ErrUnresolved = errors.New("directory: unresolved")
)

// FallbackCentroid is the map centre used whenever a force/neighbourhood pair
// is not fully specified.
func FallbackCentroid() types.Coordinate {
	return types.NationalCentre()
}

// isNotFound reports whether err is a not_found_* AppError from the source.
func isNotFound(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case types.ErrCodeNotFoundForce, types.ErrCodeNotFoundNeighbourhood, types.ErrCodeNotFoundResource:
		return true
	}
	return false
}

// Load fetches the force list and the period catalog concurrently. Both are
// required for the service to answer any query, so either failing fails the
// load.
func Load(ctx context.Context, src external.CrimeDataSource, c *cache.Cache, logger *slog.Logger) (*ForceDirectory, *PeriodCatalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		forces  []types.PoliceForce
		periods []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		forces, err = src.ListForces(gctx)
		if err != nil {
			return fmt.Errorf("loading forces: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		periods, err = src.ListAvailablePeriods(gctx)
		if err != nil {
			return fmt.Errorf("loading periods: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	logger.InfoContext(ctx, "directory loaded",
		"forces", len(forces),
		"periods", len(periods),
	)

	return NewForceDirectory(forces, src, c, logger), NewPeriodCatalog(periods), nil
}
