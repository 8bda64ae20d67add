package repository

import (
	"context"

	"github.com/route-poi-service/internal/domain"
)

// POISourceRepository определяет доступ к внешнему источнику геоданных.
// Реализация не трогает персистентность - только сетевой вызов.
type POISourceRepository interface {
	// FetchPOIs загружает POI по bbox или коридору маршрута
	FetchPOIs(ctx context.Context, query domain.SourceQuery) ([]*domain.POI, error)
}
