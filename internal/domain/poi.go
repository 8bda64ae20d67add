package domain

import (
	"fmt"
	"time"
)

// SourceType - тип геометрии объекта во внешнем источнике
type SourceType string

const (
	SourceTypeNode     SourceType = "node"
	SourceTypeWay      SourceType = "way"
	SourceTypeRelation SourceType = "relation"
)

// UnknownName подставляется вместо отсутствующего имени.
// POI без имени кешируются, но никогда не попадают в ответ пользователю.
const UnknownName = "Unknown"

// POI представляет точку интереса
type POI struct {
	ID               int64             `json:"id" db:"source_id"`
	SourceType       SourceType        `json:"source_type" db:"source_type"`
	Name             string            `json:"name" db:"name"`
	Lat              float64           `json:"lat" db:"lat"`
	Lon              float64           `json:"lon" db:"lon"`
	Tags             map[string]string `json:"tags,omitempty" db:"tags"`
	PrimaryAttribute string            `json:"primary_attribute" db:"primary_attribute"`
	Category         string            `json:"category" db:"category"`
	DistanceToRoute  *float64          `json:"distance_to_route_km,omitempty" db:"-"`
	Description      *string           `json:"description,omitempty" db:"description"`
	IsTopPick        *bool             `json:"is_top_pick,omitempty" db:"-"`
	CreatedAt        time.Time         `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at,omitempty" db:"updated_at"`
}

// Key - глобально уникальный ключ хранения: "node/123", "way/456"
func (p *POI) Key() string {
	return fmt.Sprintf("%s/%d", p.SourceType, p.ID)
}

// HasName проверяет, есть ли у POI информативное имя
func (p *POI) HasName() bool {
	return p.Name != "" && p.Name != UnknownName
}

// primaryAttributeKeys - приоритетный список тегов для primary_attribute
var primaryAttributeKeys = []string{"tourism", "historic", "amenity", "shop", "natural"}

// PrimaryAttributeFromTags возвращает первое непустое значение
// из приоритетного списка тегов, иначе "unknown"
func PrimaryAttributeFromTags(tags map[string]string) string {
	for _, key := range primaryAttributeKeys {
		if v := tags[key]; v != "" {
			return v
		}
	}
	return "unknown"
}
