package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/usecase"
	"github.com/route-poi-service/internal/worker/refresh"
)

// MockRefreshQueue is a mock of RefreshQueueRepository
type MockRefreshQueue struct {
	mock.Mock
}

func (m *MockRefreshQueue) Publish(ctx context.Context, task domain.RefreshTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockRefreshQueue) CreateConsumerGroup(ctx context.Context, group string) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockRefreshQueue) ConsumeBatch(ctx context.Context, group, consumer string, count int) ([]domain.RefreshMessage, error) {
	args := m.Called(ctx, group, consumer, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RefreshMessage), args.Error(1)
}

func (m *MockRefreshQueue) AckMessage(ctx context.Context, group, messageID string) error {
	args := m.Called(ctx, group, messageID)
	return args.Error(0)
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

// MockPOISource is a mock of POISourceRepository
type MockPOISource struct {
	mock.Mock
}

func (m *MockPOISource) FetchPOIs(ctx context.Context, query domain.SourceQuery) ([]*domain.POI, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.POI), args.Error(1)
}

func newWorker(queue *MockRefreshQueue, tileRepo *MockTileRepository, source *MockPOISource) *refresh.TileRefreshWorker {
	logger := zap.NewNop()
	tileCacheUC := usecase.NewTileCacheUseCase(nil, tileRepo, source, nil, logger, 30*24*time.Hour, 1000)
	return refresh.NewTileRefreshWorker(queue, tileCacheUC, "test-group", 10, 0.25, logger)
}

func TestTileRefreshWorker_Name(t *testing.T) {
	worker := newWorker(&MockRefreshQueue{}, &MockTileRepository{}, &MockPOISource{})
	assert.Equal(t, "tile-refresh", worker.Name())
}

func TestTileRefreshWorker_StopIdempotent(t *testing.T) {
	worker := newWorker(&MockRefreshQueue{}, &MockTileRepository{}, &MockPOISource{})

	assert.NoError(t, worker.Stop())
	assert.NoError(t, worker.Stop())
}

func TestTileRefreshWorker_ContextCancellation(t *testing.T) {
	queue := &MockRefreshQueue{}
	queue.On("CreateConsumerGroup", mock.Anything, "test-group").Return(nil)
	queue.On("ConsumeBatch", mock.Anything, "test-group", mock.Anything, 10).Return(
		[]domain.RefreshMessage{}, nil)

	worker := newWorker(queue, &MockTileRepository{}, &MockPOISource{})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

func TestTileRefreshWorker_ProcessesAndAcksTask(t *testing.T) {
	queue := &MockRefreshQueue{}
	tileRepo := &MockTileRepository{}
	source := &MockPOISource{}

	task := domain.RefreshTask{
		TaskID:     uuid.New(),
		TileID:     "210_53",
		Categories: []string{"museum"},
		Reason:     domain.RefreshReasonFetchFailed,
		EnqueuedAt: time.Now(),
	}
	message := domain.RefreshMessage{ID: "1-0", Task: task}

	queue.On("CreateConsumerGroup", mock.Anything, "test-group").Return(nil)
	queue.On("ConsumeBatch", mock.Anything, "test-group", mock.Anything, 10).Return(
		[]domain.RefreshMessage{message}, nil).Once()
	queue.On("ConsumeBatch", mock.Anything, "test-group", mock.Anything, 10).Return(
		[]domain.RefreshMessage{}, nil)
	queue.On("AckMessage", mock.Anything, "test-group", "1-0").Return(nil)

	// тайл свежий - перезагрузка обслуживается из кеша без похода в источник
	supersetHash := domain.SupersetFiltersHash()
	tileRepo.On("IsTileFresh", mock.Anything, "210_53", supersetHash, mock.Anything).Return(true, nil)
	tileRepo.On("GetPOIsForTile", mock.Anything, "210_53", supersetHash).Return(
		[]*domain.POI{{ID: 1, SourceType: domain.SourceTypeNode, Name: "Pergamon", Category: "museum"}}, nil)

	worker := newWorker(queue, tileRepo, source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, worker.Stop())
	<-done

	queue.AssertCalled(t, "AckMessage", mock.Anything, "test-group", "1-0")
	source.AssertNotCalled(t, "FetchPOIs")
}

func TestTileRefreshWorker_DropsMalformedTileID(t *testing.T) {
	queue := &MockRefreshQueue{}

	message := domain.RefreshMessage{
		ID: "2-0",
		Task: domain.RefreshTask{
			TaskID: uuid.New(),
			TileID: "not-a-tile",
		},
	}

	queue.On("CreateConsumerGroup", mock.Anything, "test-group").Return(nil)
	queue.On("ConsumeBatch", mock.Anything, "test-group", mock.Anything, 10).Return(
		[]domain.RefreshMessage{message}, nil).Once()
	queue.On("ConsumeBatch", mock.Anything, "test-group", mock.Anything, 10).Return(
		[]domain.RefreshMessage{}, nil)
	queue.On("AckMessage", mock.Anything, "test-group", "2-0").Return(nil)

	worker := newWorker(queue, &MockTileRepository{}, &MockPOISource{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, worker.Stop())
	<-done

	queue.AssertCalled(t, "AckMessage", mock.Anything, "test-group", "2-0")
}
