package usecase

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/pkg/utils"
)

// Пределы количества опорных точек для стратифицированной выборки
const (
	minSampleAnchors = 10
	maxSampleAnchors = 30
)

// DeduplicatePOIs убирает дубликаты по ключу идентичности;
// выигрывает первое вхождение. Идемпотентна.
func DeduplicatePOIs(pois []*domain.POI) []*domain.POI {
	seen := make(map[string]struct{}, len(pois))
	out := make([]*domain.POI, 0, len(pois))
	for _, poi := range pois {
		key := poi.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, poi)
	}
	return out
}

// FilterByRouteDistance пересчитывает минимальное расстояние каждого POI
// до маршрута (проекция на отрезки, хаверсин) и отбрасывает POI дальше
// maxDeviationKm. Расстояние записывается в POI.
func FilterByRouteDistance(pois []*domain.POI, route domain.Route, maxDeviationKm float64) []*domain.POI {
	if len(route) == 0 {
		return pois
	}

	line := route.LineString()
	out := make([]*domain.POI, 0, len(pois))
	for _, poi := range pois {
		dist := utils.DistanceToLineKm(orb.Point{poi.Lon, poi.Lat}, line)
		if dist > maxDeviationKm {
			continue
		}
		d := dist
		poi.DistanceToRoute = &d
		out = append(out, poi)
	}
	return out
}

// SortByImportance сортирует POI: приоритетные категории впереди,
// внутри равного приоритета - по возрастанию расстояния
func SortByImportance(pois []*domain.POI) {
	sort.SliceStable(pois, func(i, j int) bool {
		return domain.MoreImportant(pois[i], pois[j])
	})
}

// InterleaveByCategory перемешивает POI round-robin по категориям:
// по одному элементу на категорию за "слой", чтобы одна многочисленная
// категория не доминировала в начале списка
func InterleaveByCategory(pois []*domain.POI) []*domain.POI {
	groups := make(map[string][]*domain.POI)
	var order []string // категории в порядке первого появления

	for _, poi := range pois {
		if _, ok := groups[poi.Category]; !ok {
			order = append(order, poi.Category)
		}
		groups[poi.Category] = append(groups[poi.Category], poi)
	}

	for _, category := range order {
		SortByImportance(groups[category])
	}

	out := make([]*domain.POI, 0, len(pois))
	for layer := 0; len(out) < len(pois); layer++ {
		for _, category := range order {
			group := groups[category]
			if layer < len(group) {
				out = append(out, group[layer])
			}
		}
	}
	return out
}

// StratifiedSampleAlongRoute выбирает limit POI, распределённых вдоль
// всего маршрута: 10-30 опорных точек равномерно по маршруту (последняя
// вершина всегда включена), каждый POI приписывается к ближайшей опоре,
// выборка идёт round-robin по одной на опору за слой
func StratifiedSampleAlongRoute(pois []*domain.POI, route domain.Route, limit int) []*domain.POI {
	if len(pois) <= limit {
		return pois
	}
	if len(route) == 0 {
		return pois[:limit]
	}

	anchors := sampleAnchors(route)

	// каждому POI - ближайшая опора
	buckets := make([][]*domain.POI, len(anchors))
	for _, poi := range pois {
		best, bestDist := 0, -1.0
		for i, anchor := range anchors {
			d := utils.HaversineDistance(poi.Lat, poi.Lon, anchor.Lat, anchor.Lon)
			if bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		buckets[best] = append(buckets[best], poi)
	}

	out := make([]*domain.POI, 0, limit)
	for layer := 0; len(out) < limit; layer++ {
		picked := false
		for _, bucket := range buckets {
			if layer < len(bucket) {
				out = append(out, bucket[layer])
				picked = true
				if len(out) == limit {
					break
				}
			}
		}
		if !picked {
			break
		}
	}
	return out
}

func sampleAnchors(route domain.Route) []domain.Point {
	n := len(route)
	if n > maxSampleAnchors {
		n = maxSampleAnchors
	} else if n < minSampleAnchors {
		n = len(route)
	}
	if n <= 1 {
		return []domain.Point{route[len(route)-1]}
	}

	anchors := make([]domain.Point, 0, n)
	step := float64(len(route)-1) / float64(n-1)
	for i := 0; i < n-1; i++ {
		anchors = append(anchors, route[int(float64(i)*step)])
	}
	// финальная вершина маршрута всегда в числе опор
	anchors = append(anchors, route[len(route)-1])
	return anchors
}
