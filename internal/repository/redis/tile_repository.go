package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"go.uber.org/zap"
)

// tileRecord - хранимое представление тайла вместе с временем загрузки
type tileRecord struct {
	Tile      domain.Tile `json:"tile"`
	FetchedAt time.Time   `json:"fetched_at"`
}

type tileRepository struct {
	client *redis.Client
	logger *zap.Logger
	pois   repository.POIRepository
}

// NewTileRepository - резервный бэкенд хранения тайлов поверх Redis:
// запись тайла - JSON-значение, связи тайл-POI - множество (SADD).
// Транзакций нет, SaveTileWithPOIs выполняет шаги последовательно.
func NewTileRepository(rd *Redis, pois repository.POIRepository) repository.TileRepository {
	return &tileRepository{
		client: rd.Client(),
		logger: rd.logger,
		pois:   pois,
	}
}

func (r *tileRepository) GetTile(ctx context.Context, tileID, filtersHash string) (*domain.TileCacheEntry, error) {
	raw, err := r.client.Get(ctx, tileKey(filtersHash, tileID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get tile", zap.String("tile_id", tileID), zap.Error(err))
		return nil, fmt.Errorf("tile get: %w", err)
	}

	var record tileRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal tile record: %w", err)
	}

	return &domain.TileCacheEntry{
		TileID:      tileID,
		FiltersHash: filtersHash,
		FetchedAt:   record.FetchedAt,
	}, nil
}

func (r *tileRepository) UpsertTile(ctx context.Context, tile domain.Tile, filtersHash string, fetchedAt time.Time) error {
	data, err := json.Marshal(tileRecord{Tile: tile, FetchedAt: fetchedAt})
	if err != nil {
		return fmt.Errorf("marshal tile record: %w", err)
	}

	// Без TTL: устаревшие записи остаются как деградированный fallback
	if err := r.client.Set(ctx, tileKey(filtersHash, tile.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to upsert tile", zap.String("tile_id", tile.ID), zap.Error(err))
		return fmt.Errorf("tile upsert: %w", err)
	}

	return nil
}

func (r *tileRepository) IsTileFresh(ctx context.Context, tileID, filtersHash string, ttl time.Duration) (bool, error) {
	entry, err := r.GetTile(ctx, tileID, filtersHash)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.IsFresh(time.Now(), ttl), nil
}

func (r *tileRepository) LinkPOIToTile(ctx context.Context, tileID, filtersHash, poiKey string) error {
	if err := r.client.SAdd(ctx, tilePOIsKey(filtersHash, tileID), poiKey).Err(); err != nil {
		r.logger.Error("Failed to link POI to tile",
			zap.String("tile_id", tileID),
			zap.String("poi_id", poiKey),
			zap.Error(err))
		return fmt.Errorf("tile link: %w", err)
	}
	return nil
}

func (r *tileRepository) GetPOIsForTile(ctx context.Context, tileID, filtersHash string) ([]*domain.POI, error) {
	keys, err := r.client.SMembers(ctx, tilePOIsKey(filtersHash, tileID)).Result()
	if err != nil {
		r.logger.Error("Failed to get tile members", zap.String("tile_id", tileID), zap.Error(err))
		return nil, fmt.Errorf("tile members: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	return r.pois.GetByIDs(ctx, keys)
}

func (r *tileRepository) ClearTilePOIs(ctx context.Context, tileID, filtersHash string) error {
	if err := r.client.Del(ctx, tilePOIsKey(filtersHash, tileID)).Err(); err != nil {
		r.logger.Error("Failed to clear tile POIs", zap.String("tile_id", tileID), zap.Error(err))
		return fmt.Errorf("tile clear: %w", err)
	}
	return nil
}

func (r *tileRepository) GetTilesByIDs(ctx context.Context, tileIDs []string, filtersHash string) ([]*domain.TileCacheEntry, error) {
	if len(tileIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tileIDs))
	for i, id := range tileIDs {
		keys[i] = tileKey(filtersHash, id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Failed to mget tiles", zap.Int("count", len(keys)), zap.Error(err))
		return nil, fmt.Errorf("tiles mget: %w", err)
	}

	var entries []*domain.TileCacheEntry
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var record tileRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			r.logger.Warn("Failed to unmarshal tile record", zap.Error(err))
			continue
		}
		entries = append(entries, &domain.TileCacheEntry{
			TileID:      tileIDs[i],
			FiltersHash: filtersHash,
			FetchedAt:   record.FetchedAt,
		})
	}

	return entries, nil
}

func (r *tileRepository) GetTileLinks(ctx context.Context, tileIDs []string, filtersHash string) ([]domain.TilePOILink, error) {
	if len(tileIDs) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(tileIDs))
	for i, id := range tileIDs {
		cmds[i] = pipe.SMembers(ctx, tilePOIsKey(filtersHash, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to get tile links", zap.Int("count", len(tileIDs)), zap.Error(err))
		return nil, fmt.Errorf("tile links: %w", err)
	}

	var links []domain.TilePOILink
	for i, cmd := range cmds {
		for _, poiKey := range cmd.Val() {
			links = append(links, domain.TilePOILink{
				TileID:      tileIDs[i],
				FiltersHash: filtersHash,
				POIKey:      poiKey,
			})
		}
	}

	return links, nil
}

// SaveTileWithPOIs: redis-бэкенд не транзакционен - обновление идёт
// последовательно (upsert -> clear -> relink), короткое окно
// несогласованности допустимо
func (r *tileRepository) SaveTileWithPOIs(ctx context.Context, tile domain.Tile, filtersHash string, pois []*domain.POI, fetchedAt time.Time) error {
	if err := r.UpsertTile(ctx, tile, filtersHash, fetchedAt); err != nil {
		return err
	}
	if err := r.ClearTilePOIs(ctx, tile.ID, filtersHash); err != nil {
		return err
	}

	for _, poi := range pois {
		if err := r.pois.Upsert(ctx, poi); err != nil {
			return err
		}
		if err := r.LinkPOIToTile(ctx, tile.ID, filtersHash, poi.Key()); err != nil {
			return err
		}
	}

	return nil
}
