package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileID(t *testing.T) {
	tests := []struct {
		name     string
		lat      float64
		lon      float64
		sizeDeg  float64
		expected string
	}{
		{
			name:     "berlin center",
			lat:      52.52,
			lon:      13.405,
			sizeDeg:  0.25,
			expected: "210_53",
		},
		{
			name:     "origin",
			lat:      0,
			lon:      0,
			sizeDeg:  0.25,
			expected: "0_0",
		},
		{
			name:     "negative coordinates floor down",
			lat:      -0.1,
			lon:      -0.1,
			sizeDeg:  0.25,
			expected: "-1_-1",
		},
		{
			name:     "southern hemisphere",
			lat:      -33.8688,
			lon:      151.2093,
			sizeDeg:  0.25,
			expected: "-136_604",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TileID(tt.lat, tt.lon, tt.sizeDeg))
		})
	}
}

func TestTileID_Deterministic(t *testing.T) {
	// Соседние точки внутри одной ячейки дают один и тот же идентификатор
	assert.Equal(t, TileID(52.50, 13.30, 0.25), TileID(52.74, 13.49, 0.25))
	// Граница ячейки принадлежит следующей ячейке
	assert.NotEqual(t, TileID(52.7499, 13.30, 0.25), TileID(52.75, 13.30, 0.25))
}

func TestNewTile(t *testing.T) {
	tile := NewTile(210, 53, 0.25)

	assert.Equal(t, "210_53", tile.ID)
	assert.InDelta(t, 52.5, tile.MinLat, 1e-9)
	assert.InDelta(t, 52.75, tile.MaxLat, 1e-9)
	assert.InDelta(t, 13.25, tile.MinLon, 1e-9)
	assert.InDelta(t, 13.5, tile.MaxLon, 1e-9)
}

func TestTileFromID(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		original := NewTile(210, 53, 0.25)

		restored, err := TileFromID(original.ID, 0.25)
		require.NoError(t, err)
		assert.Equal(t, original, restored)
	})

	t.Run("negative indexes", func(t *testing.T) {
		tile, err := TileFromID("-1_-1", 0.25)
		require.NoError(t, err)
		assert.InDelta(t, -0.25, tile.MinLat, 1e-9)
		assert.InDelta(t, 0.0, tile.MaxLat, 1e-9)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := TileFromID("210", 0.25)
		assert.Error(t, err)

		_, err = TileFromID("a_b", 0.25)
		assert.Error(t, err)
	})
}

func TestTilesForRoute(t *testing.T) {
	t.Run("single point covers its own tile", func(t *testing.T) {
		route := Route{{Lat: 52.52, Lon: 13.405}}

		tiles := TilesForRoute(route, 5, 0.25)
		require.NotEmpty(t, tiles)

		ids := make(map[string]struct{}, len(tiles))
		for _, tile := range tiles {
			ids[tile.ID] = struct{}{}
		}
		assert.Contains(t, ids, "210_53")
	})

	t.Run("no duplicate tiles for close vertices", func(t *testing.T) {
		route := Route{
			{Lat: 52.52, Lon: 13.405},
			{Lat: 52.53, Lon: 13.41},
			{Lat: 52.54, Lon: 13.42},
		}

		tiles := TilesForRoute(route, 5, 0.25)

		seen := make(map[string]struct{})
		for _, tile := range tiles {
			_, dup := seen[tile.ID]
			assert.False(t, dup, "duplicate tile %s", tile.ID)
			seen[tile.ID] = struct{}{}
		}
	})

	t.Run("larger radius covers more tiles", func(t *testing.T) {
		route := Route{{Lat: 52.52, Lon: 13.405}}

		small := TilesForRoute(route, 1, 0.25)
		large := TilesForRoute(route, 30, 0.25)

		assert.Greater(t, len(large), len(small))
	})

	t.Run("every route vertex is inside the covering set", func(t *testing.T) {
		route := Route{
			{Lat: 52.52, Lon: 13.405},
			{Lat: 52.45, Lon: 13.2},
			{Lat: 52.39, Lon: 13.06},
		}

		tiles := TilesForRoute(route, 10, 0.25)

		for _, p := range route {
			found := false
			for _, tile := range tiles {
				if tile.ID == TileID(p.Lat, p.Lon, 0.25) {
					found = true
					break
				}
			}
			assert.True(t, found, "vertex (%f, %f) not covered", p.Lat, p.Lon)
		}
	})

	t.Run("empty route yields no tiles", func(t *testing.T) {
		assert.Empty(t, TilesForRoute(Route{}, 5, 0.25))
	})
}

func TestTilesForBoundingBox(t *testing.T) {
	bbox := BoundingBox{MinLat: 52.4, MaxLat: 52.6, MinLon: 13.2, MaxLon: 13.5}

	tiles := TilesForBoundingBox(bbox, 0.25)
	require.NotEmpty(t, tiles)

	ids := make(map[string]struct{}, len(tiles))
	for _, tile := range tiles {
		ids[tile.ID] = struct{}{}
	}
	assert.Contains(t, ids, TileID(52.4, 13.2, 0.25))
	assert.Contains(t, ids, TileID(52.6, 13.5, 0.25))
}

func TestTileCacheEntry_IsFresh(t *testing.T) {
	now := time.Now()
	entry := &TileCacheEntry{TileID: "210_53", FetchedAt: now.Add(-24 * time.Hour)}

	assert.True(t, entry.IsFresh(now, 30*24*time.Hour))
	assert.False(t, entry.IsFresh(now, 12*time.Hour))
}
