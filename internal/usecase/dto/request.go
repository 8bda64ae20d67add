package dto

// RoutePOIRequest - запрос POI вдоль маршрута.
// BBox: [min_lat, max_lat, min_lon, max_lon], ровно 4 числа.
type RoutePOIRequest struct {
	BBox    []float64   `json:"bbox" validate:"required,len=4"`
	Route   [][]float64 `json:"route,omitempty" validate:"omitempty,min=2,dive,len=2"`
	Filters *POIFilters `json:"filters,omitempty"`
}

// POIFilters - опциональные фильтры запроса
type POIFilters struct {
	Categories    []string `json:"categories,omitempty"`
	MaxDistanceKm float64  `json:"max_distance_km,omitempty" validate:"omitempty,min=0.1,max=100"`
	Limit         int      `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	UseAI         bool     `json:"use_ai,omitempty"`
	UseTileCache  *bool    `json:"use_tile_cache,omitempty"`
}
