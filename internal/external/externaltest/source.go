// Package externaltest provides a testify mock of external.CrimeDataSource
// shared by the directory, query and handler tests.
//
// Usage:
//
//	src := new(externaltest.MockSource)
//	src.On("ListForces", mock.Anything).Return([]types.PoliceForce{{ID: "avon-and-somerset", Name: "Avon and Somerset Constabulary"}}, nil)
//	defer src.AssertExpectations(t)
package externaltest

import (
	"context"

	"streetcrime/internal/external"
	"streetcrime/internal/types"

	"github.com/stretchr/testify/mock"
)

// MockSource implements external.CrimeDataSource.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListAvailablePeriods(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) ListForces(ctx context.Context) ([]types.PoliceForce, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]types.PoliceForce), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) GetForceDetail(ctx context.Context, forceID string) (*types.ForceDetail, error) {
	args := m.Called(ctx, forceID)
	if v := args.Get(0); v != nil {
		return v.(*types.ForceDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) ListNeighbourhoods(ctx context.Context, forceID string) ([]types.NeighbourhoodStub, error) {
	args := m.Called(ctx, forceID)
	if v := args.Get(0); v != nil {
		return v.([]types.NeighbourhoodStub), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) GetNeighbourhoodDetail(ctx context.Context, forceID, neighbourhoodID string) (*types.NeighbourhoodDetail, error) {
	args := m.Called(ctx, forceID, neighbourhoodID)
	if v := args.Get(0); v != nil {
		return v.(*types.NeighbourhoodDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) SearchIncidentsInArea(ctx context.Context, boundary types.Polygon, period string) ([]types.RawIncident, error) {
	args := m.Called(ctx, boundary, period)
	if v := args.Get(0); v != nil {
		return v.([]types.RawIncident), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ external.CrimeDataSource = (*MockSource)(nil)
