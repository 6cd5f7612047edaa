package directory

import (
	"context"
	"testing"

	"streetcrime/internal/external/externaltest"
	"streetcrime/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	avonStubs = []types.NeighbourhoodStub{
		{ID: "ASC100", Name: "Bedminster"},
		{ID: "ASC123", Name: "City Centre"},
		{ID: "ASC999", Name: "City Centre"},
	}
	cityCentreDetail = &types.NeighbourhoodDetail{
		Boundary: types.Polygon{{Lat: 51.45, Lon: -2.59}, {Lat: 51.46, Lon: -2.58}, {Lat: 51.44, Lon: -2.57}},
		Centroid: types.Coordinate{Lat: 51.4545, Lon: -2.5879},
	}
)

func TestNeighbourhoodResolver_ResolveIDFirstMatchWins(t *testing.T) {
	src := new(externaltest.MockSource)
	src.On("ListNeighbourhoods", mock.Anything, "avon-and-somerset").Return(avonStubs, nil).Once()

	r := NewNeighbourhoodResolver(src, newTestCache(), nil)

	id, err := r.ResolveID(context.Background(), "avon-and-somerset", "City Centre")
	require.NoError(t, err)
	assert.Equal(t, "ASC123", id)

	_, err = r.ResolveID(context.Background(), "avon-and-somerset", "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	src.AssertExpectations(t)
}

func TestNeighbourhoodResolver_UnresolvedWithoutInputs(t *testing.T) {
	src := new(externaltest.MockSource)
	r := NewNeighbourhoodResolver(src, newTestCache(), nil)

	_, err := r.ResolveID(context.Background(), "", "City Centre")
	assert.ErrorIs(t, err, ErrUnresolved)

	_, err = r.Resolve(context.Background(), "avon-and-somerset", "")
	assert.ErrorIs(t, err, ErrUnresolved)

	_, err = r.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnresolved)

	src.AssertNotCalled(t, "ListNeighbourhoods", mock.Anything, mock.Anything)
}

func TestNeighbourhoodResolver_ResolveMemoizes(t *testing.T) {
	src := new(externaltest.MockSource)
	src.On("ListNeighbourhoods", mock.Anything, "avon-and-somerset").Return(avonStubs, nil).Once()
	src.On("GetNeighbourhoodDetail", mock.Anything, "avon-and-somerset", "ASC123").Return(cityCentreDetail, nil).Once()

	r := NewNeighbourhoodResolver(src, newTestCache(), nil)

	first, err := r.Resolve(context.Background(), "avon-and-somerset", "City Centre")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "avon-and-somerset", "City Centre")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "ASC123", first.ID)
	assert.Equal(t, "avon-and-somerset", first.ForceID)
	assert.Equal(t, cityCentreDetail.Centroid, first.Centroid)
	assert.Len(t, first.Boundary, 3)

	// .Once() on both expectations fails the test on a second remote call.
	src.AssertExpectations(t)
}

func TestNeighbourhoodResolver_UnknownForceIsNotFound(t *testing.T) {
	src := new(externaltest.MockSource)
	src.On("ListNeighbourhoods", mock.Anything, "atlantis").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundForce, "not found", nil))

	r := NewNeighbourhoodResolver(src, newTestCache(), nil)

	_, err := r.Resolve(context.Background(), "atlantis", "City Centre")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNeighbourhoodResolver_DetailMissingIsNotFound(t *testing.T) {
	src := new(externaltest.MockSource)
	src.On("ListNeighbourhoods", mock.Anything, "avon-and-somerset").Return(avonStubs, nil)
	src.On("GetNeighbourhoodDetail", mock.Anything, "avon-and-somerset", "ASC100").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundNeighbourhood, "gone", nil))

	r := NewNeighbourhoodResolver(src, newTestCache(), nil)

	_, err := r.Resolve(context.Background(), "avon-and-somerset", "Bedminster")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNeighbourhoodResolver_UpstreamErrorPropagates(t *testing.T) {
	upstream := types.NewAppError(types.ErrCodeUpstreamUnavailable, "503", nil)
	src := new(externaltest.MockSource)
	src.On("ListNeighbourhoods", mock.Anything, "avon-and-somerset").Return(nil, upstream).Twice()

	r := NewNeighbourhoodResolver(src, newTestCache(), nil)

	_, err := r.Resolve(context.Background(), "avon-and-somerset", "City Centre")
	assert.ErrorIs(t, err, upstream)

	// Failures are not cached; the next call reaches the source again.
	_, err = r.Resolve(context.Background(), "avon-and-somerset", "City Centre")
	assert.ErrorIs(t, err, upstream)
	src.AssertExpectations(t)
}
