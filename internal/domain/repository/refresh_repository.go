package repository

import (
	"context"

	"github.com/route-poi-service/internal/domain"
)

// RefreshQueueRepository определяет очередь задач фонового обновления тайлов
type RefreshQueueRepository interface {
	// Publish публикует задачу в стрим
	Publish(ctx context.Context, task domain.RefreshTask) error

	// CreateConsumerGroup создаёт consumer group для стрима
	CreateConsumerGroup(ctx context.Context, group string) error

	// ConsumeBatch читает до count сообщений без блокировки
	ConsumeBatch(ctx context.Context, group, consumer string, count int) ([]domain.RefreshMessage, error)

	// AckMessage подтверждает обработку сообщения
	AckMessage(ctx context.Context, group, messageID string) error
}
