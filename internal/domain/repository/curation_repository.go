package repository

import (
	"context"
	"errors"

	"github.com/route-poi-service/internal/domain"
)

// ErrCurationUnavailable - сентинел: сервис курирования недоступен,
// вызывающий обязан использовать собственное ранжирование.
var ErrCurationUnavailable = errors.New("curation service unavailable")

// CurationRepository определяет внешний AI-сервис курирования POI.
// Возвращает ранжированное подмножество с аннотациями (description,
// is_top_pick) либо ErrCurationUnavailable.
type CurationRepository interface {
	CuratePOIs(ctx context.Context, pois []*domain.POI, route domain.Route) ([]*domain.POI, error)
}
