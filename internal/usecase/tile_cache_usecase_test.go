package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/usecase"
)

// MockPOIRepository is a mock of POIRepository
type MockPOIRepository struct {
	mock.Mock
}

func (m *MockPOIRepository) Upsert(ctx context.Context, poi *domain.POI) error {
	args := m.Called(ctx, poi)
	return args.Error(0)
}

func (m *MockPOIRepository) GetByIDs(ctx context.Context, keys []string) ([]*domain.POI, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.POI), args.Error(1)
}

// MockTileRepository is a mock of TileRepository
type MockTileRepository struct {
	mock.Mock
}

func (m *MockTileRepository) GetTile(ctx context.Context, tileID, filtersHash string) (*domain.TileCacheEntry, error) {
	args := m.Called(ctx, tileID, filtersHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TileCacheEntry), args.Error(1)
}

func (m *MockTileRepository) UpsertTile(ctx context.Context, tile domain.Tile, filtersHash string, fetchedAt time.Time) error {
	args := m.Called(ctx, tile, filtersHash, fetchedAt)
	return args.Error(0)
}

func (m *MockTileRepository) IsTileFresh(ctx context.Context, tileID, filtersHash string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, tileID, filtersHash, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockTileRepository) LinkPOIToTile(ctx context.Context, tileID, filtersHash, poiKey string) error {
	args := m.Called(ctx, tileID, filtersHash, poiKey)
	return args.Error(0)
}

func (m *MockTileRepository) GetPOIsForTile(ctx context.Context, tileID, filtersHash string) ([]*domain.POI, error) {
	args := m.Called(ctx, tileID, filtersHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.POI), args.Error(1)
}

func (m *MockTileRepository) ClearTilePOIs(ctx context.Context, tileID, filtersHash string) error {
	args := m.Called(ctx, tileID, filtersHash)
	return args.Error(0)
}

func (m *MockTileRepository) GetTilesByIDs(ctx context.Context, tileIDs []string, filtersHash string) ([]*domain.TileCacheEntry, error) {
	args := m.Called(ctx, tileIDs, filtersHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TileCacheEntry), args.Error(1)
}

func (m *MockTileRepository) GetTileLinks(ctx context.Context, tileIDs []string, filtersHash string) ([]domain.TilePOILink, error) {
	args := m.Called(ctx, tileIDs, filtersHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TilePOILink), args.Error(1)
}

func (m *MockTileRepository) SaveTileWithPOIs(ctx context.Context, tile domain.Tile, filtersHash string, pois []*domain.POI, fetchedAt time.Time) error {
	args := m.Called(ctx, tile, filtersHash, pois, fetchedAt)
	return args.Error(0)
}

// MockPOISourceRepository is a mock of POISourceRepository
type MockPOISourceRepository struct {
	mock.Mock
}

func (m *MockPOISourceRepository) FetchPOIs(ctx context.Context, query domain.SourceQuery) ([]*domain.POI, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.POI), args.Error(1)
}

// MockRefreshQueueRepository is a mock of RefreshQueueRepository
type MockRefreshQueueRepository struct {
	mock.Mock
}

func (m *MockRefreshQueueRepository) Publish(ctx context.Context, task domain.RefreshTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockRefreshQueueRepository) CreateConsumerGroup(ctx context.Context, group string) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockRefreshQueueRepository) ConsumeBatch(ctx context.Context, group, consumer string, count int) ([]domain.RefreshMessage, error) {
	args := m.Called(ctx, group, consumer, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RefreshMessage), args.Error(1)
}

func (m *MockRefreshQueueRepository) AckMessage(ctx context.Context, group, messageID string) error {
	args := m.Called(ctx, group, messageID)
	return args.Error(0)
}

// MockCurationRepository is a mock of CurationRepository
type MockCurationRepository struct {
	mock.Mock
}

func (m *MockCurationRepository) CuratePOIs(ctx context.Context, pois []*domain.POI, route domain.Route) ([]*domain.POI, error) {
	args := m.Called(ctx, pois, route)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.POI), args.Error(1)
}

const testTTL = 30 * 24 * time.Hour

func TestTileCacheUseCase_GetCachedPOIsForTiles(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	tile := domain.NewTile(210, 53, 0.25)
	supersetHash := domain.SupersetFiltersHash()
	specificHash := domain.BuildFiltersHash([]string{"museum"})

	t.Run("fresh superset hit filtered down to requested categories", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, nil, logger, testTTL, 1000)

		tileRepo.On("GetTilesByIDs", ctx, []string{tile.ID}, supersetHash).Return(
			[]*domain.TileCacheEntry{
				{TileID: tile.ID, FiltersHash: supersetHash, FetchedAt: time.Now().Add(-time.Hour)},
			}, nil)
		tileRepo.On("GetTileLinks", ctx, []string{tile.ID}, supersetHash).Return(
			[]domain.TilePOILink{
				{TileID: tile.ID, FiltersHash: supersetHash, POIKey: "node/1"},
				{TileID: tile.ID, FiltersHash: supersetHash, POIKey: "node/2"},
			}, nil)
		poiRepo.On("GetByIDs", ctx, []string{"node/1", "node/2"}).Return(
			[]*domain.POI{
				{ID: 1, SourceType: domain.SourceTypeNode, Name: "Pergamon", Category: "museum"},
				{ID: 2, SourceType: domain.SourceTypeNode, Name: "Tiergarten", Category: "park"},
			}, nil)

		result, err := uc.GetCachedPOIsForTiles(ctx, []domain.Tile{tile}, []string{"museum"})

		require.NoError(t, err)
		assert.Empty(t, result.MissingTiles)
		require.Len(t, result.CachedPOIs, 1)
		assert.Equal(t, "Pergamon", result.CachedPOIs[0].Name)

		source.AssertNotCalled(t, "FetchPOIs")
		tileRepo.AssertExpectations(t)
	})

	t.Run("stale superset falls through to specific scope", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, nil, logger, testTTL, 1000)

		tileRepo.On("GetTilesByIDs", ctx, []string{tile.ID}, supersetHash).Return(
			[]*domain.TileCacheEntry{
				{TileID: tile.ID, FiltersHash: supersetHash, FetchedAt: time.Now().Add(-testTTL - time.Hour)},
			}, nil)
		tileRepo.On("GetTilesByIDs", ctx, []string{tile.ID}, specificHash).Return(
			[]*domain.TileCacheEntry{
				{TileID: tile.ID, FiltersHash: specificHash, FetchedAt: time.Now().Add(-time.Hour)},
			}, nil)
		tileRepo.On("GetTileLinks", ctx, []string{tile.ID}, specificHash).Return(
			[]domain.TilePOILink{{TileID: tile.ID, FiltersHash: specificHash, POIKey: "node/1"}}, nil)
		poiRepo.On("GetByIDs", ctx, []string{"node/1"}).Return(
			[]*domain.POI{{ID: 1, SourceType: domain.SourceTypeNode, Name: "Pergamon", Category: "museum"}}, nil)

		result, err := uc.GetCachedPOIsForTiles(ctx, []domain.Tile{tile}, []string{"museum"})

		require.NoError(t, err)
		assert.Empty(t, result.MissingTiles)
		require.Len(t, result.CachedPOIs, 1)
	})

	t.Run("no fresh entries on any level marks tile missing", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, nil, logger, testTTL, 1000)

		tileRepo.On("GetTilesByIDs", ctx, []string{tile.ID}, supersetHash).Return(
			[]*domain.TileCacheEntry{}, nil)
		tileRepo.On("GetTilesByIDs", ctx, []string{tile.ID}, specificHash).Return(
			[]*domain.TileCacheEntry{}, nil)

		result, err := uc.GetCachedPOIsForTiles(ctx, []domain.Tile{tile}, []string{"museum"})

		require.NoError(t, err)
		assert.Empty(t, result.CachedPOIs)
		require.Len(t, result.MissingTiles, 1)
		assert.Equal(t, tile.ID, result.MissingTiles[0].ID)
	})
}

func TestTileCacheUseCase_LoadTilePOIs(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	tile := domain.NewTile(210, 53, 0.25)
	supersetHash := domain.SupersetFiltersHash()
	specificHash := domain.BuildFiltersHash([]string{"museum"})

	t.Run("miss fetches from source and caches", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, nil, logger, testTTL, 1000)

		fetched := []*domain.POI{
			{ID: 1, SourceType: domain.SourceTypeNode, Name: "Pergamon", Category: "museum"},
		}

		tileRepo.On("IsTileFresh", ctx, tile.ID, supersetHash, testTTL).Return(false, nil)
		tileRepo.On("IsTileFresh", ctx, tile.ID, specificHash, testTTL).Return(false, nil)
		source.On("FetchPOIs", ctx, mock.MatchedBy(func(q domain.SourceQuery) bool {
			return q.BBox == tile.BBox() && q.Limit == 1000
		})).Return(fetched, nil)
		tileRepo.On("SaveTileWithPOIs", ctx, tile, specificHash, fetched, mock.AnythingOfType("time.Time")).Return(nil)

		pois, err := uc.LoadTilePOIs(ctx, tile, []string{"museum"}, 0)

		require.NoError(t, err)
		assert.Equal(t, fetched, pois)
		tileRepo.AssertExpectations(t)
		source.AssertExpectations(t)
	})

	t.Run("fresh superset reused without fetch", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, nil, logger, testTTL, 1000)

		tileRepo.On("IsTileFresh", ctx, tile.ID, supersetHash, testTTL).Return(true, nil)
		tileRepo.On("GetPOIsForTile", ctx, tile.ID, supersetHash).Return(
			[]*domain.POI{
				{ID: 1, SourceType: domain.SourceTypeNode, Name: "Pergamon", Category: "museum"},
				{ID: 2, SourceType: domain.SourceTypeNode, Name: "Tiergarten", Category: "park"},
			}, nil)

		pois, err := uc.LoadTilePOIs(ctx, tile, []string{"museum"}, 0)

		require.NoError(t, err)
		require.Len(t, pois, 1)
		assert.Equal(t, "museum", pois[0].Category)
		source.AssertNotCalled(t, "FetchPOIs")
	})

	t.Run("fetch failure serves stale specific links and enqueues refresh", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}
		refreshQueue := &MockRefreshQueueRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, refreshQueue, logger, testTTL, 1000)

		stale := []*domain.POI{
			{ID: 1, SourceType: domain.SourceTypeNode, Name: "Pergamon", Category: "museum"},
		}

		tileRepo.On("IsTileFresh", ctx, tile.ID, supersetHash, testTTL).Return(false, nil)
		tileRepo.On("IsTileFresh", ctx, tile.ID, specificHash, testTTL).Return(false, nil)
		source.On("FetchPOIs", ctx, mock.Anything).Return(nil, errors.New("gateway timeout"))
		tileRepo.On("GetPOIsForTile", ctx, tile.ID, specificHash).Return(stale, nil)
		refreshQueue.On("Publish", ctx, mock.MatchedBy(func(task domain.RefreshTask) bool {
			return task.TileID == tile.ID && task.Reason == domain.RefreshReasonStaleServed
		})).Return(nil)

		pois, err := uc.LoadTilePOIs(ctx, tile, []string{"museum"}, 0)

		require.NoError(t, err)
		assert.Equal(t, stale, pois)
		refreshQueue.AssertExpectations(t)
	})

	t.Run("fetch failure without stale data propagates error", func(t *testing.T) {
		poiRepo := &MockPOIRepository{}
		tileRepo := &MockTileRepository{}
		source := &MockPOISourceRepository{}
		refreshQueue := &MockRefreshQueueRepository{}

		uc := usecase.NewTileCacheUseCase(poiRepo, tileRepo, source, refreshQueue, logger, testTTL, 1000)

		fetchErr := errors.New("all endpoints exhausted")

		tileRepo.On("IsTileFresh", ctx, tile.ID, supersetHash, testTTL).Return(false, nil)
		tileRepo.On("IsTileFresh", ctx, tile.ID, specificHash, testTTL).Return(false, nil)
		source.On("FetchPOIs", ctx, mock.Anything).Return(nil, fetchErr)
		tileRepo.On("GetPOIsForTile", ctx, tile.ID, specificHash).Return([]*domain.POI{}, nil)
		refreshQueue.On("Publish", ctx, mock.MatchedBy(func(task domain.RefreshTask) bool {
			return task.Reason == domain.RefreshReasonFetchFailed
		})).Return(nil)

		_, err := uc.LoadTilePOIs(ctx, tile, []string{"museum"}, 0)

		assert.ErrorIs(t, err, fetchErr)
		refreshQueue.AssertExpectations(t)
	})
}
