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

// mgetChunkSize держит MGET в разумных пределах одного вызова
const mgetChunkSize = 900

type poiRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPOIRepository - резервный бэкенд хранения POI поверх Redis.
// POI хранятся как JSON-значения без TTL: записи кеша тайлов
// остаются пригодными как устаревший fallback.
func NewPOIRepository(rd *Redis) repository.POIRepository {
	return &poiRepository{
		client: rd.Client(),
		logger: rd.logger,
	}
}

func (r *poiRepository) Upsert(ctx context.Context, poi *domain.POI) error {
	data, err := json.Marshal(poi)
	if err != nil {
		return fmt.Errorf("marshal poi: %w", err)
	}

	if err := r.client.Set(ctx, poiKey(poi.Key()), data, 0).Err(); err != nil {
		r.logger.Error("Failed to upsert POI", zap.String("poi", poi.Key()), zap.Error(err))
		return fmt.Errorf("poi upsert: %w", err)
	}

	return nil
}

func (r *poiRepository) GetByIDs(ctx context.Context, keys []string) ([]*domain.POI, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var pois []*domain.POI
	for start := 0; start < len(keys); start += mgetChunkSize {
		end := start + mgetChunkSize
		if end > len(keys) {
			end = len(keys)
		}

		redisKeys := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			redisKeys = append(redisKeys, poiKey(k))
		}

		values, err := r.client.MGet(ctx, redisKeys...).Result()
		if err != nil {
			r.logger.Error("Failed to mget POIs", zap.Int("count", len(redisKeys)), zap.Error(err))
			return nil, fmt.Errorf("poi mget: %w", err)
		}

		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue // отсутствующий ключ
			}
			var poi domain.POI
			if err := json.Unmarshal([]byte(raw), &poi); err != nil {
				r.logger.Warn("Failed to unmarshal POI", zap.Error(err))
				continue
			}
			pois = append(pois, &poi)
		}
	}

	return pois, nil
}
