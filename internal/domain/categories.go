package domain

import "math"

// Закрытый набор категорий POI, известных сервису. Порядок стабильный:
// он используется для superset-хеша и для списка категорий в API.
var knownCategories = []string{
	"castle",
	"museum",
	"monument",
	"memorial",
	"ruins",
	"viewpoint",
	"attraction",
	"artwork",
	"zoo",
	"theme_park",
	"park",
	"garden",
	"waterfall",
	"cave",
	"lake",
	"beach",
	"church",
	"windmill",
	"lighthouse",
}

// categoryRule - соответствие тега внешнего источника категории сервиса
type categoryRule struct {
	Key      string
	Value    string
	Category string
}

// Правила проверяются по порядку; более специфичные теги идут первыми.
var categoryRules = []categoryRule{
	{"historic", "castle", "castle"},
	{"historic", "ruins", "ruins"},
	{"historic", "monument", "monument"},
	{"historic", "memorial", "memorial"},
	{"tourism", "museum", "museum"},
	{"tourism", "viewpoint", "viewpoint"},
	{"tourism", "attraction", "attraction"},
	{"tourism", "artwork", "artwork"},
	{"tourism", "zoo", "zoo"},
	{"tourism", "theme_park", "theme_park"},
	{"leisure", "park", "park"},
	{"leisure", "garden", "garden"},
	{"waterway", "waterfall", "waterfall"},
	{"natural", "cave_entrance", "cave"},
	{"water", "lake", "lake"},
	{"natural", "beach", "beach"},
	{"amenity", "place_of_worship", "church"},
	{"man_made", "windmill", "windmill"},
	{"man_made", "lighthouse", "lighthouse"},
}

// overpassSelectors - фрагменты Overpass QL по категориям.
// Неизвестная категория не добавляет в запрос ничего.
var overpassSelectors = map[string]string{
	"castle":     `["historic"="castle"]`,
	"ruins":      `["historic"="ruins"]`,
	"monument":   `["historic"="monument"]`,
	"memorial":   `["historic"="memorial"]`,
	"museum":     `["tourism"="museum"]`,
	"viewpoint":  `["tourism"="viewpoint"]`,
	"attraction": `["tourism"="attraction"]`,
	"artwork":    `["tourism"="artwork"]`,
	"zoo":        `["tourism"="zoo"]`,
	"theme_park": `["tourism"="theme_park"]`,
	"park":       `["leisure"="park"]`,
	"garden":     `["leisure"="garden"]`,
	"waterfall":  `["waterway"="waterfall"]`,
	"cave":       `["natural"="cave_entrance"]`,
	"lake":       `["natural"="water"]["water"="lake"]`,
	"beach":      `["natural"="beach"]`,
	"church":     `["amenity"="place_of_worship"]`,
	"windmill":   `["man_made"="windmill"]`,
	"lighthouse": `["man_made"="lighthouse"]`,
}

// importantCategories сортируются впереди прочих при ранжировании
var importantCategories = map[string]bool{
	"castle":     true,
	"museum":     true,
	"monument":   true,
	"viewpoint":  true,
	"attraction": true,
}

// AllCategories возвращает копию полного набора известных категорий
func AllCategories() []string {
	out := make([]string, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// IsValidCategory проверяет, известна ли категория сервису
func IsValidCategory(category string) bool {
	_, ok := overpassSelectors[category]
	return ok
}

// OverpassSelector возвращает фрагмент Overpass QL для категории
func OverpassSelector(category string) (string, bool) {
	sel, ok := overpassSelectors[category]
	return sel, ok
}

// IsImportantCategory проверяет, входит ли категория в приоритетный набор
func IsImportantCategory(category string) bool {
	return importantCategories[category]
}

// MoreImportant сравнивает два POI для ранжирования: приоритетные
// категории впереди, при равном приоритете - по возрастанию расстояния
// до маршрута (POI без расстояния уходят в конец)
func MoreImportant(a, b *POI) bool {
	ia, ib := IsImportantCategory(a.Category), IsImportantCategory(b.Category)
	if ia != ib {
		return ia
	}

	da, db := math.MaxFloat64, math.MaxFloat64
	if a.DistanceToRoute != nil {
		da = *a.DistanceToRoute
	}
	if b.DistanceToRoute != nil {
		db = *b.DistanceToRoute
	}
	return da < db
}

// CategoryFromTags классифицирует POI по тегам источника.
// Пустая строка - объект не относится ни к одной известной категории.
func CategoryFromTags(tags map[string]string) string {
	for _, rule := range categoryRules {
		if tags[rule.Key] == rule.Value {
			return rule.Category
		}
	}
	return ""
}
