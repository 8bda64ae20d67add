package refresh

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"github.com/route-poi-service/internal/usecase"
	"github.com/route-poi-service/internal/worker"
	"go.uber.org/zap"
)

const (
	// emptyQueueSleep - пауза если очередь пуста
	emptyQueueSleep = 500 * time.Millisecond
	// taskTimeout - максимальное время обработки одной задачи
	taskTimeout = 90 * time.Second
)

// TileRefreshWorker обрабатывает задачи фонового обновления тайлов
type TileRefreshWorker struct {
	*worker.BaseWorker
	refreshQueue repository.RefreshQueueRepository
	tileCacheUC  *usecase.TileCacheUseCase
	consumerName string
	tileSizeDeg  float64
	batchSize    int
}

// NewTileRefreshWorker создает новый TileRefreshWorker
func NewTileRefreshWorker(
	refreshQueue repository.RefreshQueueRepository,
	tileCacheUC *usecase.TileCacheUseCase,
	consumerGroup string,
	batchSize int,
	tileSizeDeg float64,
	logger *zap.Logger,
) *TileRefreshWorker {
	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	if batchSize <= 0 {
		batchSize = 10
	}
	if tileSizeDeg <= 0 {
		tileSizeDeg = domain.DefaultTileSizeDeg
	}

	return &TileRefreshWorker{
		BaseWorker:   worker.NewBaseWorker("tile-refresh", consumerGroup, logger),
		refreshQueue: refreshQueue,
		tileCacheUC:  tileCacheUC,
		consumerName: consumerName,
		tileSizeDeg:  tileSizeDeg,
		batchSize:    batchSize,
	}
}

// Start запускает воркер
func (w *TileRefreshWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting TileRefreshWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("batch_size", w.batchSize))

	if err := w.refreshQueue.CreateConsumerGroup(ctx, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		default:
			processed, err := w.processBatch(ctx)
			if err != nil {
				logger.Error("Failed to process batch", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			if processed == 0 {
				time.Sleep(emptyQueueSleep)
			}
		}
	}
}

// processBatch читает и обрабатывает batch задач обновления.
// Возвращает количество обработанных сообщений.
func (w *TileRefreshWorker) processBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.refreshQueue.ConsumeBatch(ctx, w.ConsumerGroup(), w.consumerName, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}

	if len(messages) == 0 {
		return 0, nil
	}

	logger.Info("Processing refresh batch", zap.Int("message_count", len(messages)))

	processed := 0
	for _, msg := range messages {
		if err := w.processTask(ctx, msg.Task); err != nil {
			logger.Warn("Tile refresh failed, task will be redelivered",
				zap.String("tile_id", msg.Task.TileID),
				zap.String("reason", msg.Task.Reason),
				zap.Error(err))
			continue
		}

		if err := w.refreshQueue.AckMessage(ctx, w.ConsumerGroup(), msg.ID); err != nil {
			logger.Error("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}

		processed++
	}

	return processed, nil
}

// processTask перезагружает один тайл из внешнего источника
func (w *TileRefreshWorker) processTask(ctx context.Context, task domain.RefreshTask) error {
	tile, err := domain.TileFromID(task.TileID, w.tileSizeDeg)
	if err != nil {
		// Повреждённый идентификатор тайла - повтор не поможет
		w.Logger().Error("Dropping task with malformed tile id",
			zap.String("tile_id", task.TileID),
			zap.Error(err))
		return nil
	}

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	_, err = w.tileCacheUC.LoadTilePOIs(taskCtx, tile, task.Categories, 0)
	if err != nil {
		return fmt.Errorf("failed to reload tile %s: %w", task.TileID, err)
	}

	w.Logger().Info("Tile refreshed",
		zap.String("tile_id", task.TileID),
		zap.Strings("categories", task.Categories),
		zap.String("reason", task.Reason))

	return nil
}
