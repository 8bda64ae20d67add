package utils

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusKm = 6371.0

// HaversineDistance вычисляет расстояние между двумя точками в километрах
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// PointToSegmentKm вычисляет минимальное расстояние от точки до отрезка
// в километрах. Проекция считается в локальной равнопромежуточной
// плоскости, само расстояние - по хаверсину. Точки в порядке (lon, lat).
func PointToSegmentKm(p, a, b orb.Point) float64 {
	latRef := (a[1] + b[1]) / 2.0 * math.Pi / 180.0
	cosRef := math.Cos(latRef)

	ax, ay := a[0]*cosRef, a[1]
	bx, by := b[0]*cosRef, b[1]
	px, py := p[0]*cosRef, p[1]

	dx, dy := bx-ax, by-ay
	segLenSq := dx*dx + dy*dy

	t := 0.0
	if segLenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / segLenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	nearestLat := ay + t*dy
	nearestLon := a[0] + t*(b[0]-a[0])

	return HaversineDistance(p[1], p[0], nearestLat, nearestLon)
}

// DistanceToLineKm вычисляет минимальное расстояние от точки до полилинии
// по всем последовательным парам вершин
func DistanceToLineKm(p orb.Point, line orb.LineString) float64 {
	if len(line) == 0 {
		return math.MaxFloat64
	}
	if len(line) == 1 {
		return HaversineDistance(p[1], p[0], line[0][1], line[0][0])
	}

	minDist := math.MaxFloat64
	for i := 0; i < len(line)-1; i++ {
		if d := PointToSegmentKm(p, line[i], line[i+1]); d < minDist {
			minDist = d
		}
	}
	return minDist
}

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidateRadius проверяет валидность радиуса отклонения (0.1 - 100 км)
func ValidateRadius(radiusKm float64) bool {
	return radiusKm >= 0.1 && radiusKm <= 100
}
