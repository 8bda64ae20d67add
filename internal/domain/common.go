package domain

import "github.com/paulmach/orb"

type Point struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// Route - полилиния маршрута (упорядоченный список вершин)
type Route []Point

// LineString конвертирует маршрут в orb.LineString (lon, lat порядок)
func (r Route) LineString() orb.LineString {
	line := make(orb.LineString, len(r))
	for i, p := range r {
		line[i] = orb.Point{p.Lon, p.Lat}
	}
	return line
}

type BoundingBox struct {
	MinLat float64 `json:"min_lat" db:"min_lat"`
	MaxLat float64 `json:"max_lat" db:"max_lat"`
	MinLon float64 `json:"min_lon" db:"min_lon"`
	MaxLon float64 `json:"max_lon" db:"max_lon"`
}

// Bound конвертирует BoundingBox в orb.Bound
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Contains проверяет, попадает ли точка внутрь bbox
func (b BoundingBox) Contains(p Point) bool {
	return b.Bound().Contains(orb.Point{p.Lon, p.Lat})
}

// SourceQuery - запрос к внешнему источнику POI.
// Если Route задан, запрос строится вдоль коридора маршрута,
// иначе - по bbox. MaxDeviationKm == 0 отключает фильтр по удалению.
type SourceQuery struct {
	BBox           BoundingBox
	Route          Route
	Categories     []string
	MaxDeviationKm float64
	Limit          int
}
