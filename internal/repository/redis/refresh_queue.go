package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"go.uber.org/zap"
)

type refreshQueue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRefreshQueue - очередь задач фонового обновления тайлов
// поверх Redis Streams с consumer group
func NewRefreshQueue(rd *Redis) repository.RefreshQueueRepository {
	return &refreshQueue{
		client: rd.Client(),
		logger: rd.logger,
	}
}

func (r *refreshQueue) Publish(ctx context.Context, task domain.RefreshTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal refresh task: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamTileRefresh,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		r.logger.Error("Failed to publish refresh task",
			zap.String("tile_id", task.TileID),
			zap.Error(err))
		return fmt.Errorf("publish refresh task: %w", err)
	}

	r.logger.Debug("Refresh task published",
		zap.String("tile_id", task.TileID),
		zap.String("reason", task.Reason))
	return nil
}

func (r *refreshQueue) CreateConsumerGroup(ctx context.Context, group string) error {
	// MKSTREAM создаст стрим, если его ещё нет; читаем только новые сообщения
	err := r.client.XGroupCreateMkStream(ctx, domain.StreamTileRefresh, group, "$").Err()
	if err != nil {
		// BUSYGROUP - группа уже существует
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			return nil
		}
		r.logger.Error("Failed to create consumer group",
			zap.String("group", group),
			zap.Error(err))
		return fmt.Errorf("create consumer group: %w", err)
	}

	r.logger.Info("Consumer group created",
		zap.String("stream", domain.StreamTileRefresh),
		zap.String("group", group))
	return nil
}

func (r *refreshQueue) ConsumeBatch(ctx context.Context, group, consumer string, count int) ([]domain.RefreshMessage, error) {
	result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{domain.StreamTileRefresh, ">"},
		Count:    int64(count),
		Block:    -1, // неблокирующее чтение
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("consume refresh batch: %w", err)
	}

	var messages []domain.RefreshMessage
	for _, stream := range result {
		for _, msg := range stream.Messages {
			raw, ok := msg.Values["data"].(string)
			if !ok {
				r.logger.Warn("Refresh message without data field",
					zap.String("message_id", msg.ID))
				// ACK битое сообщение, чтобы оно не застревало в PEL
				_ = r.AckMessage(ctx, group, msg.ID)
				continue
			}

			var task domain.RefreshTask
			if err := json.Unmarshal([]byte(raw), &task); err != nil {
				r.logger.Warn("Failed to unmarshal refresh task",
					zap.String("message_id", msg.ID),
					zap.Error(err))
				_ = r.AckMessage(ctx, group, msg.ID)
				continue
			}

			messages = append(messages, domain.RefreshMessage{ID: msg.ID, Task: task})
		}
	}

	return messages, nil
}

func (r *refreshQueue) AckMessage(ctx context.Context, group, messageID string) error {
	if err := r.client.XAck(ctx, domain.StreamTileRefresh, group, messageID).Err(); err != nil {
		return fmt.Errorf("ack refresh message: %w", err)
	}
	return nil
}
