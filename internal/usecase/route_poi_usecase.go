package usecase

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"github.com/route-poi-service/internal/pkg/errors"
	"github.com/route-poi-service/internal/pkg/utils"
	"github.com/route-poi-service/internal/usecase/dto"
	"go.uber.org/zap"
)

const (
	defaultMaxDistanceKm = 5.0
	defaultResultLimit   = 100
)

// RoutePOIUseCase - верхнеуровневый оркестратор: маршрут и фильтры ->
// тайлы -> массовая проверка кеша -> пакетная загрузка недостающих ->
// слияние -> формирование выдачи -> опциональное AI-курирование
type RoutePOIUseCase struct {
	tileCache   *TileCacheUseCase
	source      repository.POISourceRepository
	curation    repository.CurationRepository // nil - курирование отключено
	logger      *zap.Logger
	tileSizeDeg float64
	maxPOIs     int
	batchSize   int
	batchDelay  time.Duration
}

func NewRoutePOIUseCase(
	tileCache *TileCacheUseCase,
	source repository.POISourceRepository,
	curation repository.CurationRepository,
	logger *zap.Logger,
	tileSizeDeg float64,
	maxPOIs int,
	batchSize int,
	batchDelay time.Duration,
) *RoutePOIUseCase {
	if tileSizeDeg == 0 {
		tileSizeDeg = domain.DefaultTileSizeDeg
	}
	if maxPOIs == 0 {
		maxPOIs = 1000
	}
	if batchSize == 0 {
		batchSize = 3
	}
	return &RoutePOIUseCase{
		tileCache:   tileCache,
		source:      source,
		curation:    curation,
		logger:      logger,
		tileSizeDeg: tileSizeDeg,
		maxPOIs:     maxPOIs,
		batchSize:   batchSize,
		batchDelay:  batchDelay,
	}
}

// GetPOIsAlongRoute возвращает POI рядом с маршрутом с разбивкой
// по категориям
func (uc *RoutePOIUseCase) GetPOIsAlongRoute(ctx context.Context, req dto.RoutePOIRequest) (*dto.RoutePOIResponse, error) {
	bbox, route, err := uc.parseGeometry(req)
	if err != nil {
		return nil, err
	}

	categories, maxDistanceKm, limit, useAI, useTileCache, err := uc.parseFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	var pois []*domain.POI
	if useTileCache {
		pois, err = uc.collectThroughTileCache(ctx, bbox, route, categories, maxDistanceKm)
	} else {
		// прямой запрос к источнику, мимо тайлового кеша
		pois, err = uc.source.FetchPOIs(ctx, domain.SourceQuery{
			BBox:           bbox,
			Route:          route,
			Categories:     categories,
			MaxDeviationKm: maxDistanceKm,
			Limit:          uc.maxPOIs,
		})
	}
	if err != nil {
		return nil, err
	}

	pois = DeduplicatePOIs(pois)
	pois = dropUnnamed(pois)
	pois = filterPOIsByCategories(pois, categories)
	total := len(pois)

	// жёсткий потолок до дорогих пер-POI вычислений
	truncated := false
	if len(pois) > uc.maxPOIs {
		pois = pois[:uc.maxPOIs]
		truncated = true
	}

	if len(route) > 1 {
		pois = FilterByRouteDistance(pois, route, maxDistanceKm)
	}
	filtered := len(pois)

	SortByImportance(pois)

	curated := false
	if useAI && uc.curation != nil {
		if result, curErr := uc.curation.CuratePOIs(ctx, pois, route); curErr == nil {
			pois = result
			curated = true
		} else if stderrors.Is(curErr, repository.ErrCurationUnavailable) {
			uc.logger.Info("Curation unavailable, using own shaping")
		} else {
			uc.logger.Warn("Curation failed, using own shaping", zap.Error(curErr))
		}
	}

	if curated {
		if len(pois) > limit {
			pois = pois[:limit]
		}
	} else {
		pois = InterleaveByCategory(pois)
		if len(pois) > limit {
			pois = StratifiedSampleAlongRoute(pois, route, limit)
		}
	}

	results := make([]dto.POIResult, len(pois))
	for i, poi := range pois {
		results[i] = dto.NewPOIResult(poi)
	}

	return &dto.RoutePOIResponse{
		POIs: results,
		Metadata: dto.RoutePOIMetadata{
			Total:          total,
			Filtered:       filtered,
			Truncated:      truncated,
			FiltersApplied: categories,
		},
	}, nil
}

func (uc *RoutePOIUseCase) parseGeometry(req dto.RoutePOIRequest) (domain.BoundingBox, domain.Route, error) {
	if len(req.BBox) != 4 {
		return domain.BoundingBox{}, nil, errors.ErrInvalidBoundingBox
	}

	bbox := domain.BoundingBox{
		MinLat: req.BBox[0],
		MaxLat: req.BBox[1],
		MinLon: req.BBox[2],
		MaxLon: req.BBox[3],
	}
	if !utils.ValidateCoordinates(bbox.MinLat, bbox.MinLon) ||
		!utils.ValidateCoordinates(bbox.MaxLat, bbox.MaxLon) {
		return domain.BoundingBox{}, nil, errors.ErrInvalidCoordinates
	}

	route := make(domain.Route, 0, len(req.Route))
	for _, pair := range req.Route {
		if len(pair) != 2 || !utils.ValidateCoordinates(pair[0], pair[1]) {
			return domain.BoundingBox{}, nil, errors.ErrInvalidCoordinates
		}
		route = append(route, domain.Point{Lat: pair[0], Lon: pair[1]})
	}

	return bbox, route, nil
}

func (uc *RoutePOIUseCase) parseFilters(filters *dto.POIFilters) (categories []string, maxDistanceKm float64, limit int, useAI, useTileCache bool, err error) {
	maxDistanceKm = defaultMaxDistanceKm
	limit = defaultResultLimit
	useTileCache = true

	if filters == nil {
		return domain.AllCategories(), maxDistanceKm, limit, false, true, nil
	}

	for _, c := range filters.Categories {
		if !domain.IsValidCategory(c) {
			return nil, 0, 0, false, false, errors.ErrInvalidCategory.WithDetails(map[string]interface{}{
				"category": c,
			})
		}
	}
	categories = filters.Categories
	if len(categories) == 0 {
		categories = domain.AllCategories()
	}

	if filters.MaxDistanceKm != 0 {
		if !utils.ValidateRadius(filters.MaxDistanceKm) {
			return nil, 0, 0, false, false, errors.ErrInvalidRadius
		}
		maxDistanceKm = filters.MaxDistanceKm
	}
	if filters.Limit != 0 {
		limit = filters.Limit
	}
	useAI = filters.UseAI
	if filters.UseTileCache != nil {
		useTileCache = *filters.UseTileCache
	}

	return categories, maxDistanceKm, limit, useAI, useTileCache, nil
}

func (uc *RoutePOIUseCase) collectThroughTileCache(ctx context.Context, bbox domain.BoundingBox, route domain.Route, categories []string, maxDistanceKm float64) ([]*domain.POI, error) {
	var tiles []domain.Tile
	if len(route) > 0 {
		tiles = domain.TilesForRoute(route, maxDistanceKm, uc.tileSizeDeg)
	} else {
		tiles = domain.TilesForBoundingBox(bbox, uc.tileSizeDeg)
	}

	lookup, err := uc.tileCache.GetCachedPOIsForTiles(ctx, tiles, categories)
	if err != nil {
		return nil, err
	}

	fetched, failed := uc.fetchMissingTiles(ctx, lookup.MissingTiles, categories)

	// Жёсткая ошибка только если все пути получения данных отказали
	// для большинства тайлов; частичное покрытие - тихая деградация
	if len(tiles) > 0 && 2*failed > len(tiles) {
		uc.logger.Error("Majority of tiles failed to load",
			zap.Int("failed", failed),
			zap.Int("tiles", len(tiles)))
		return nil, errors.ErrSourceUnavailable
	}

	return append(lookup.CachedPOIs, fetched...), nil
}

// fetchMissingTiles загружает недостающие тайлы пакетами фиксированного
// размера: внутри пакета загрузки идут конкурентно, между пакетами -
// пауза под rate limit источника. Сбой одного тайла не отменяет
// остальных - он даёт пустой вклад (fan-out/gather).
func (uc *RoutePOIUseCase) fetchMissingTiles(ctx context.Context, tiles []domain.Tile, categories []string) ([]*domain.POI, int) {
	type tileResult struct {
		tileID string
		pois   []*domain.POI
		err    error
	}

	var all []*domain.POI
	failed := 0

	for start := 0; start < len(tiles); start += uc.batchSize {
		if start > 0 && uc.batchDelay > 0 {
			select {
			case <-time.After(uc.batchDelay):
			case <-ctx.Done():
				failed += len(tiles) - start
				return all, failed
			}
		}

		end := start + uc.batchSize
		if end > len(tiles) {
			end = len(tiles)
		}
		batch := tiles[start:end]

		results := make(chan tileResult, len(batch))
		for _, tile := range batch {
			go func(t domain.Tile) {
				pois, err := uc.tileCache.LoadTilePOIs(ctx, t, categories, 0)
				results <- tileResult{tileID: t.ID, pois: pois, err: err}
			}(tile)
		}

		for range batch {
			res := <-results
			if res.err != nil {
				failed++
				uc.logger.Warn("Tile load failed, contributing empty result",
					zap.String("tile_id", res.tileID),
					zap.Error(res.err))
				continue
			}
			all = append(all, res.pois...)
		}
	}

	return all, failed
}

func dropUnnamed(pois []*domain.POI) []*domain.POI {
	out := make([]*domain.POI, 0, len(pois))
	for _, poi := range pois {
		if poi.HasName() {
			out = append(out, poi)
		}
	}
	return out
}
