package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"go.uber.org/zap"
)

// TileCacheUseCase - двухуровневый тайловый кеш POI.
// Superset-scope ("все категории") переиспользуется любым более узким
// запросом; specific-scope хранит тайл для конкретного набора категорий.
type TileCacheUseCase struct {
	poiRepo      repository.POIRepository
	tileRepo     repository.TileRepository
	source       repository.POISourceRepository
	refreshQueue repository.RefreshQueueRepository // может быть nil
	logger       *zap.Logger
	ttl          time.Duration
	fetchLimit   int
}

func NewTileCacheUseCase(
	poiRepo repository.POIRepository,
	tileRepo repository.TileRepository,
	source repository.POISourceRepository,
	refreshQueue repository.RefreshQueueRepository,
	logger *zap.Logger,
	ttl time.Duration,
	fetchLimit int,
) *TileCacheUseCase {
	if fetchLimit == 0 {
		fetchLimit = 1000
	}
	return &TileCacheUseCase{
		poiRepo:      poiRepo,
		tileRepo:     tileRepo,
		source:       source,
		refreshQueue: refreshQueue,
		logger:       logger,
		ttl:          ttl,
		fetchLimit:   fetchLimit,
	}
}

// CachedTilesResult - результат массовой проверки кеша
type CachedTilesResult struct {
	CachedPOIs   []*domain.POI
	MissingTiles []domain.Tile
}

// GetCachedPOIsForTiles выполняет массовую проверку кеша по двум
// уровням: сначала свежие superset-записи, затем specific-записи
// для остальных тайлов. Тайл без свежей записи любого уровня
// попадает в MissingTiles.
func (uc *TileCacheUseCase) GetCachedPOIsForTiles(ctx context.Context, tiles []domain.Tile, categories []string) (*CachedTilesResult, error) {
	supersetHash := domain.SupersetFiltersHash()
	specificHash := domain.BuildFiltersHash(categories)
	now := time.Now()

	tileIDs := make([]string, len(tiles))
	for i, t := range tiles {
		tileIDs[i] = t.ID
	}

	supersetEntries, err := uc.tileRepo.GetTilesByIDs(ctx, tileIDs, supersetHash)
	if err != nil {
		return nil, err
	}

	freshSuperset := make(map[string]bool)
	for _, entry := range supersetEntries {
		if entry.IsFresh(now, uc.ttl) {
			freshSuperset[entry.TileID] = true
		}
	}

	var remaining []string
	for _, id := range tileIDs {
		if !freshSuperset[id] {
			remaining = append(remaining, id)
		}
	}

	freshSpecific := make(map[string]bool)
	if specificHash != supersetHash && len(remaining) > 0 {
		specificEntries, err := uc.tileRepo.GetTilesByIDs(ctx, remaining, specificHash)
		if err != nil {
			return nil, err
		}
		for _, entry := range specificEntries {
			if entry.IsFresh(now, uc.ttl) {
				freshSpecific[entry.TileID] = true
			}
		}
	}

	result := &CachedTilesResult{}

	// superset хранится category-agnostic: фильтруем в памяти
	supersetPOIs, err := uc.collectPOIs(ctx, keysOf(freshSuperset), supersetHash)
	if err != nil {
		return nil, err
	}
	result.CachedPOIs = append(result.CachedPOIs, filterPOIsByCategories(supersetPOIs, categories)...)

	// specific загружался ровно для этого набора категорий
	specificPOIs, err := uc.collectPOIs(ctx, keysOf(freshSpecific), specificHash)
	if err != nil {
		return nil, err
	}
	result.CachedPOIs = append(result.CachedPOIs, specificPOIs...)

	for _, tile := range tiles {
		if !freshSuperset[tile.ID] && !freshSpecific[tile.ID] {
			result.MissingTiles = append(result.MissingTiles, tile)
		}
	}

	uc.logger.Debug("Bulk tile cache lookup",
		zap.Int("tiles", len(tiles)),
		zap.Int("superset_hits", len(freshSuperset)),
		zap.Int("specific_hits", len(freshSpecific)),
		zap.Int("missing", len(result.MissingTiles)))

	return result, nil
}

// LoadTilePOIs загружает POI одного тайла: свежий кеш, иначе внешний
// источник. requestDelay позволяет вызывающему растянуть конкурентные
// загрузки во времени.
func (uc *TileCacheUseCase) LoadTilePOIs(ctx context.Context, tile domain.Tile, categories []string, requestDelay time.Duration) ([]*domain.POI, error) {
	supersetHash := domain.SupersetFiltersHash()
	specificHash := domain.BuildFiltersHash(categories)

	if specificHash != supersetHash {
		fresh, err := uc.tileRepo.IsTileFresh(ctx, tile.ID, supersetHash, uc.ttl)
		if err != nil {
			return nil, err
		}
		if fresh {
			pois, err := uc.tileRepo.GetPOIsForTile(ctx, tile.ID, supersetHash)
			if err != nil {
				return nil, err
			}
			return filterPOIsByCategories(pois, categories), nil
		}
	}

	fresh, err := uc.tileRepo.IsTileFresh(ctx, tile.ID, specificHash, uc.ttl)
	if err != nil {
		return nil, err
	}
	if fresh {
		return uc.tileRepo.GetPOIsForTile(ctx, tile.ID, specificHash)
	}

	if requestDelay > 0 {
		select {
		case <-time.After(requestDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pois, fetchErr := uc.source.FetchPOIs(ctx, domain.SourceQuery{
		BBox:       tile.BBox(),
		Categories: categories,
		Limit:      uc.fetchLimit,
	})
	if fetchErr != nil {
		// Деградация: отдаём существующие specific-связи без проверки TTL.
		// Доступность важнее свежести; обновление уходит в фоновую очередь.
		stale, staleErr := uc.tileRepo.GetPOIsForTile(ctx, tile.ID, specificHash)
		if staleErr == nil && len(stale) > 0 {
			uc.logger.Warn("Serving stale tile cache after fetch failure",
				zap.String("tile_id", tile.ID),
				zap.Error(fetchErr))
			uc.enqueueRefresh(ctx, tile.ID, categories, domain.RefreshReasonStaleServed)
			return stale, nil
		}

		uc.enqueueRefresh(ctx, tile.ID, categories, domain.RefreshReasonFetchFailed)
		return nil, fetchErr
	}

	if err := uc.tileRepo.SaveTileWithPOIs(ctx, tile, specificHash, pois, time.Now()); err != nil {
		return nil, err
	}

	uc.logger.Debug("Tile fetched and cached",
		zap.String("tile_id", tile.ID),
		zap.String("filters_hash", specificHash),
		zap.Int("pois", len(pois)))

	return pois, nil
}

func (uc *TileCacheUseCase) enqueueRefresh(ctx context.Context, tileID string, categories []string, reason string) {
	if uc.refreshQueue == nil {
		return
	}

	task := domain.RefreshTask{
		TaskID:     uuid.New(),
		TileID:     tileID,
		Categories: categories,
		Reason:     reason,
		EnqueuedAt: time.Now(),
	}
	if err := uc.refreshQueue.Publish(ctx, task); err != nil {
		// очередь обновления - best effort
		uc.logger.Warn("Failed to enqueue tile refresh",
			zap.String("tile_id", tileID),
			zap.Error(err))
	}
}

// collectPOIs собирает POI по связям списка тайлов одного scope
func (uc *TileCacheUseCase) collectPOIs(ctx context.Context, tileIDs []string, filtersHash string) ([]*domain.POI, error) {
	if len(tileIDs) == 0 {
		return nil, nil
	}

	links, err := uc.tileRepo.GetTileLinks(ctx, tileIDs, filtersHash)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(links))
	var poiKeys []string
	for _, link := range links {
		if _, ok := seen[link.POIKey]; ok {
			continue
		}
		seen[link.POIKey] = struct{}{}
		poiKeys = append(poiKeys, link.POIKey)
	}

	return uc.poiRepo.GetByIDs(ctx, poiKeys)
}

func filterPOIsByCategories(pois []*domain.POI, categories []string) []*domain.POI {
	if len(categories) == 0 {
		return pois
	}

	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	out := make([]*domain.POI, 0, len(pois))
	for _, poi := range pois {
		if wanted[poi.Category] {
			out = append(out, poi)
		}
	}
	return out
}

func keysOf(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
