package repository

import (
	"context"

	"github.com/route-poi-service/internal/domain"
)

// POIRepository определяет методы хранения точек интереса.
// Ошибки хранилища не маскируются - они поднимаются вызывающему как есть.
type POIRepository interface {
	// Upsert создаёт или обновляет POI (last-write-wins по lat/lon/tags)
	Upsert(ctx context.Context, poi *domain.POI) error

	// GetByIDs возвращает POI по списку ключей ("node/123"),
	// с чанкованием списка под лимит параметров хранилища
	GetByIDs(ctx context.Context, keys []string) ([]*domain.POI, error)
}
