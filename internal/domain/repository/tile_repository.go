package repository

import (
	"context"
	"time"

	"github.com/route-poi-service/internal/domain"
)

// TileRepository определяет методы хранения тайлов и связей тайл-POI.
// Все записи scoped по хешу фильтров; один тайл может существовать
// одновременно в superset и в нескольких specific scope.
type TileRepository interface {
	// GetTile возвращает запись кеша тайла; nil без ошибки, если записи нет
	GetTile(ctx context.Context, tileID, filtersHash string) (*domain.TileCacheEntry, error)

	// UpsertTile создаёт или обновляет запись кеша тайла
	UpsertTile(ctx context.Context, tile domain.Tile, filtersHash string, fetchedAt time.Time) error

	// IsTileFresh проверяет, заполнен ли тайл и свеж ли он в пределах TTL
	IsTileFresh(ctx context.Context, tileID, filtersHash string, ttl time.Duration) (bool, error)

	// LinkPOIToTile связывает POI с тайлом (insert-ignore при конфликте)
	LinkPOIToTile(ctx context.Context, tileID, filtersHash, poiKey string) error

	// GetPOIsForTile возвращает все POI, связанные с тайлом
	GetPOIsForTile(ctx context.Context, tileID, filtersHash string) ([]*domain.POI, error)

	// ClearTilePOIs удаляет все связи тайла (перед повторным заполнением)
	ClearTilePOIs(ctx context.Context, tileID, filtersHash string) error

	// GetTilesByIDs возвращает записи кеша для списка тайлов
	GetTilesByIDs(ctx context.Context, tileIDs []string, filtersHash string) ([]*domain.TileCacheEntry, error)

	// GetTileLinks возвращает связи тайл-POI для списка тайлов
	GetTileLinks(ctx context.Context, tileIDs []string, filtersHash string) ([]domain.TilePOILink, error)

	// SaveTileWithPOIs сохраняет тайл и заменяет его связи одной операцией.
	// Бэкенд без транзакций выполняет шаги последовательно
	// (upsert -> clear -> relink), допуская короткое окно несогласованности.
	SaveTileWithPOIs(ctx context.Context, tile domain.Tile, filtersHash string, pois []*domain.POI, fetchedAt time.Time) error
}
