package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// FiltersSchemaVersion встраивается в хеш фильтров. Инкремент версии
// инвалидирует все существующие связи тайл-POI без миграции данных.
const FiltersSchemaVersion = 2

// filtersHashLength - длина усечённого дайджеста
const filtersHashLength = 8

// BuildFiltersHash строит стабильный ключ кеша из набора категорий.
// Одинаковые наборы в любом порядке дают одинаковый хеш. Радиус и
// дистанция намеренно не входят в ключ: тайл, загруженный однажды,
// переиспользуется при любом радиусе запроса.
func BuildFiltersHash(categories []string) string {
	return buildFiltersHash(FiltersSchemaVersion, categories)
}

func buildFiltersHash(version int, categories []string) string {
	sorted := make([]string, len(categories))
	copy(sorted, categories)
	sort.Strings(sorted)

	payload := fmt.Sprintf("v%d|%s", version, strings.Join(sorted, ","))
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])[:filtersHashLength]
}

// SupersetFiltersHash - хеш "всех известных категорий". Тайл, загруженный
// в этом scope, переиспользуется любым более узким запросом по категориям.
func SupersetFiltersHash() string {
	return BuildFiltersHash(knownCategories)
}
