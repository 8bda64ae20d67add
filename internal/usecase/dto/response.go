package dto

import "github.com/route-poi-service/internal/domain"

// POIResult - элемент выдачи
type POIResult struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Lat              float64           `json:"lat"`
	Lon              float64           `json:"lon"`
	Category         string            `json:"category"`
	PrimaryAttribute string            `json:"primary_attribute"`
	DistanceKm       *float64          `json:"distance_to_route_km,omitempty"`
	Description      *string           `json:"description,omitempty"`
	IsTopPick        *bool             `json:"is_top_pick,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// RoutePOIMetadata - метаданные выдачи. Частичное покрытие тайлов
// не является ошибкой и видно только через эти поля.
type RoutePOIMetadata struct {
	Total          int      `json:"total"`
	Filtered       int      `json:"filtered"`
	Truncated      bool     `json:"truncated"`
	FiltersApplied []string `json:"filters_applied"`
}

// RoutePOIResponse - ответ на запрос POI вдоль маршрута
type RoutePOIResponse struct {
	POIs     []POIResult      `json:"pois"`
	Metadata RoutePOIMetadata `json:"metadata"`
}

// NewPOIResult конвертирует доменный POI в элемент выдачи
func NewPOIResult(poi *domain.POI) POIResult {
	return POIResult{
		ID:               poi.Key(),
		Name:             poi.Name,
		Lat:              poi.Lat,
		Lon:              poi.Lon,
		Category:         poi.Category,
		PrimaryAttribute: poi.PrimaryAttribute,
		DistanceKm:       poi.DistanceToRoute,
		Description:      poi.Description,
		IsTopPick:        poi.IsTopPick,
		Tags:             poi.Tags,
	}
}

// CategoryInfo - описание категории для UI
type CategoryInfo struct {
	Code      string `json:"code"`
	Important bool   `json:"important"`
}
