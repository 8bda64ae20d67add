package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// DefaultTileSizeDeg - размер ячейки сетки в градусах
const DefaultTileSizeDeg = 0.25

const (
	kmPerDegreeLat = 111.0
	// minCosLat ограничивает знаменатель вблизи полюсов
	minCosLat = 0.01
)

// Tile - ячейка фиксированной географической сетки,
// единица адресации кеша. Чистая геометрия, POI не содержит.
type Tile struct {
	ID     string  `json:"id" db:"tile_id"`
	MinLat float64 `json:"min_lat" db:"min_lat"`
	MaxLat float64 `json:"max_lat" db:"max_lat"`
	MinLon float64 `json:"min_lon" db:"min_lon"`
	MaxLon float64 `json:"max_lon" db:"max_lon"`
}

// BBox возвращает границы тайла
func (t Tile) BBox() BoundingBox {
	return BoundingBox{MinLat: t.MinLat, MaxLat: t.MaxLat, MinLon: t.MinLon, MaxLon: t.MaxLon}
}

// Bound возвращает границы тайла как orb.Bound
func (t Tile) Bound() orb.Bound {
	return t.BBox().Bound()
}

// TileCacheEntry фиксирует, когда тайл был заполнен для данного хеша фильтров
type TileCacheEntry struct {
	TileID      string    `json:"tile_id" db:"tile_id"`
	FiltersHash string    `json:"filters_hash" db:"filters_hash"`
	FetchedAt   time.Time `json:"fetched_at" db:"fetched_at"`
}

// IsFresh проверяет свежесть записи относительно TTL
func (e *TileCacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// TilePOILink - связь POI с тайлом в рамках одного хеша фильтров
type TilePOILink struct {
	TileID      string `json:"tile_id" db:"tile_id"`
	FiltersHash string `json:"filters_hash" db:"filters_hash"`
	POIKey      string `json:"poi_id" db:"poi_id"`
}

// TileID возвращает детерминированный идентификатор ячейки сетки
// для точки: "{latIndex}_{lonIndex}" при floor(coord/size)
func TileID(lat, lon, sizeDeg float64) string {
	latIdx := int(math.Floor(lat / sizeDeg))
	lonIdx := int(math.Floor(lon / sizeDeg))
	return fmt.Sprintf("%d_%d", latIdx, lonIdx)
}

// NewTile строит тайл по индексам ячейки
func NewTile(latIdx, lonIdx int, sizeDeg float64) Tile {
	return Tile{
		ID:     fmt.Sprintf("%d_%d", latIdx, lonIdx),
		MinLat: float64(latIdx) * sizeDeg,
		MaxLat: float64(latIdx+1) * sizeDeg,
		MinLon: float64(lonIdx) * sizeDeg,
		MaxLon: float64(lonIdx+1) * sizeDeg,
	}
}

// TileFromID восстанавливает тайл из идентификатора.
// Тайл полностью воспроизводим из id и размера сетки.
func TileFromID(id string, sizeDeg float64) (Tile, error) {
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 {
		return Tile{}, fmt.Errorf("malformed tile id: %q", id)
	}
	latIdx, err := strconv.Atoi(parts[0])
	if err != nil {
		return Tile{}, fmt.Errorf("malformed tile id: %q", id)
	}
	lonIdx, err := strconv.Atoi(parts[1])
	if err != nil {
		return Tile{}, fmt.Errorf("malformed tile id: %q", id)
	}
	return NewTile(latIdx, lonIdx, sizeDeg), nil
}

// TilesForRoute возвращает покрывающий набор тайлов для маршрута
// с радиусом отклонения radiusKm, без дубликатов. Для каждой вершины
// строится локальный bbox (широта 1° ≈ 111 км, долгота масштабируется
// косинусом широты), результат - объединение по всем вершинам.
// Гарантия: безопасное надмножество; у полюсов возможно перекрытие.
func TilesForRoute(route Route, radiusKm, sizeDeg float64) []Tile {
	seen := make(map[string]struct{})
	var tiles []Tile

	for _, p := range route {
		dLat := radiusKm / kmPerDegreeLat

		cosLat := math.Cos(p.Lat * math.Pi / 180.0)
		if cosLat < minCosLat {
			cosLat = minCosLat
		}
		dLon := radiusKm / (kmPerDegreeLat * cosLat)

		minLatIdx := int(math.Floor((p.Lat - dLat) / sizeDeg))
		maxLatIdx := int(math.Floor((p.Lat + dLat) / sizeDeg))
		minLonIdx := int(math.Floor((p.Lon - dLon) / sizeDeg))
		maxLonIdx := int(math.Floor((p.Lon + dLon) / sizeDeg))

		for latIdx := minLatIdx; latIdx <= maxLatIdx; latIdx++ {
			for lonIdx := minLonIdx; lonIdx <= maxLonIdx; lonIdx++ {
				tile := NewTile(latIdx, lonIdx, sizeDeg)
				if _, ok := seen[tile.ID]; ok {
					continue
				}
				seen[tile.ID] = struct{}{}
				tiles = append(tiles, tile)
			}
		}
	}

	return tiles
}

// TilesForBoundingBox возвращает тайлы, покрывающие bbox (для запросов без маршрута)
func TilesForBoundingBox(bbox BoundingBox, sizeDeg float64) []Tile {
	minLatIdx := int(math.Floor(bbox.MinLat / sizeDeg))
	maxLatIdx := int(math.Floor(bbox.MaxLat / sizeDeg))
	minLonIdx := int(math.Floor(bbox.MinLon / sizeDeg))
	maxLonIdx := int(math.Floor(bbox.MaxLon / sizeDeg))

	var tiles []Tile
	for latIdx := minLatIdx; latIdx <= maxLatIdx; latIdx++ {
		for lonIdx := minLonIdx; lonIdx <= maxLonIdx; lonIdx++ {
			tiles = append(tiles, NewTile(latIdx, lonIdx, sizeDeg))
		}
	}
	return tiles
}
