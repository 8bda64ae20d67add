package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"github.com/route-poi-service/internal/pkg/errors"
	"go.uber.org/zap"
)

type tileRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTileRepository(db *DB) repository.TileRepository {
	return &tileRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *tileRepository) GetTile(ctx context.Context, tileID, filtersHash string) (*domain.TileCacheEntry, error) {
	query := `
		SELECT tile_id, filters_hash, fetched_at
		FROM tiles
		WHERE tile_id = $1 AND filters_hash = $2
	`

	var entry domain.TileCacheEntry
	err := r.db.QueryRowContext(ctx, query, tileID, filtersHash).Scan(
		&entry.TileID, &entry.FiltersHash, &entry.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get tile", zap.String("tile_id", tileID), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return &entry, nil
}

func (r *tileRepository) UpsertTile(ctx context.Context, tile domain.Tile, filtersHash string, fetchedAt time.Time) error {
	return r.upsertTile(ctx, r.db, tile, filtersHash, fetchedAt)
}

func (r *tileRepository) upsertTile(ctx context.Context, ex sqlx.ExecerContext, tile domain.Tile, filtersHash string, fetchedAt time.Time) error {
	query := `
		INSERT INTO tiles (tile_id, filters_hash, min_lat, max_lat, min_lon, max_lon, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tile_id, filters_hash) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at
	`

	_, err := ex.ExecContext(ctx, query,
		tile.ID, filtersHash, tile.MinLat, tile.MaxLat, tile.MinLon, tile.MaxLon, fetchedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert tile",
			zap.String("tile_id", tile.ID),
			zap.String("filters_hash", filtersHash),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

func (r *tileRepository) IsTileFresh(ctx context.Context, tileID, filtersHash string, ttl time.Duration) (bool, error) {
	entry, err := r.GetTile(ctx, tileID, filtersHash)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.IsFresh(time.Now(), ttl), nil
}

func (r *tileRepository) LinkPOIToTile(ctx context.Context, tileID, filtersHash, poiKey string) error {
	query := `
		INSERT INTO tile_pois (tile_id, filters_hash, poi_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, tileID, filtersHash, poiKey)
	if err != nil {
		r.logger.Error("Failed to link POI to tile",
			zap.String("tile_id", tileID),
			zap.String("poi_id", poiKey),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

func (r *tileRepository) GetPOIsForTile(ctx context.Context, tileID, filtersHash string) ([]*domain.POI, error) {
	query := `
		SELECT p.source_id, p.source_type, p.name, p.lat, p.lon,
		       p.category, p.primary_attribute, p.tags, p.description
		FROM tile_pois tp
		JOIN pois p ON p.poi_id = tp.poi_id
		WHERE tp.tile_id = $1 AND tp.filters_hash = $2
	`

	rows, err := r.db.QueryContext(ctx, query, tileID, filtersHash)
	if err != nil {
		r.logger.Error("Failed to get POIs for tile",
			zap.String("tile_id", tileID),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var pois []*domain.POI
	for rows.Next() {
		poi, err := scanPOI(rows)
		if err != nil {
			r.logger.Error("Failed to scan POI", zap.Error(err))
			continue
		}
		pois = append(pois, poi)
	}

	return pois, rows.Err()
}

func (r *tileRepository) ClearTilePOIs(ctx context.Context, tileID, filtersHash string) error {
	query := `DELETE FROM tile_pois WHERE tile_id = $1 AND filters_hash = $2`

	_, err := r.db.ExecContext(ctx, query, tileID, filtersHash)
	if err != nil {
		r.logger.Error("Failed to clear tile POIs",
			zap.String("tile_id", tileID),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

func (r *tileRepository) GetTilesByIDs(ctx context.Context, tileIDs []string, filtersHash string) ([]*domain.TileCacheEntry, error) {
	if len(tileIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT tile_id, filters_hash, fetched_at
		FROM tiles
		WHERE tile_id = ANY($1) AND filters_hash = $2
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(tileIDs), filtersHash)
	if err != nil {
		r.logger.Error("Failed to get tiles by ids", zap.Int("count", len(tileIDs)), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var entries []*domain.TileCacheEntry
	for rows.Next() {
		var entry domain.TileCacheEntry
		if err := rows.Scan(&entry.TileID, &entry.FiltersHash, &entry.FetchedAt); err != nil {
			r.logger.Error("Failed to scan tile entry", zap.Error(err))
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func (r *tileRepository) GetTileLinks(ctx context.Context, tileIDs []string, filtersHash string) ([]domain.TilePOILink, error) {
	if len(tileIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT tile_id, filters_hash, poi_id
		FROM tile_pois
		WHERE tile_id = ANY($1) AND filters_hash = $2
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(tileIDs), filtersHash)
	if err != nil {
		r.logger.Error("Failed to get tile links", zap.Int("count", len(tileIDs)), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var links []domain.TilePOILink
	for rows.Next() {
		var link domain.TilePOILink
		if err := rows.Scan(&link.TileID, &link.FiltersHash, &link.POIKey); err != nil {
			r.logger.Error("Failed to scan tile link", zap.Error(err))
			continue
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// SaveTileWithPOIs атомарно сохраняет тайл, POI и заменяет связи
// (clear-and-rebuild, чтобы не копить осиротевшие связи)
func (r *tileRepository) SaveTileWithPOIs(ctx context.Context, tile domain.Tile, filtersHash string, pois []*domain.POI, fetchedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return errors.ErrDatabaseError
	}
	defer tx.Rollback()

	if err := r.upsertTile(ctx, tx, tile, filtersHash, fetchedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tile_pois WHERE tile_id = $1 AND filters_hash = $2`,
		tile.ID, filtersHash,
	); err != nil {
		r.logger.Error("Failed to clear tile POIs in tx", zap.String("tile_id", tile.ID), zap.Error(err))
		return errors.ErrDatabaseError
	}

	upsertPOI := `
		INSERT INTO pois (
			poi_id, source_id, source_type, name, lat, lon,
			category, primary_attribute, tags, description, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (poi_id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			category = EXCLUDED.category,
			primary_attribute = EXCLUDED.primary_attribute,
			tags = EXCLUDED.tags,
			updated_at = NOW()
	`
	linkPOI := `
		INSERT INTO tile_pois (tile_id, filters_hash, poi_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	for _, poi := range pois {
		tagsJSON, err := json.Marshal(poi.Tags)
		if err != nil {
			r.logger.Error("Failed to marshal POI tags", zap.String("poi", poi.Key()), zap.Error(err))
			return errors.ErrDatabaseError
		}

		if _, err := tx.ExecContext(ctx, upsertPOI,
			poi.Key(), poi.ID, poi.SourceType, poi.Name, poi.Lat, poi.Lon,
			poi.Category, poi.PrimaryAttribute, tagsJSON, poi.Description,
		); err != nil {
			r.logger.Error("Failed to upsert POI in tx", zap.String("poi", poi.Key()), zap.Error(err))
			return errors.ErrDatabaseError
		}

		if _, err := tx.ExecContext(ctx, linkPOI, tile.ID, filtersHash, poi.Key()); err != nil {
			r.logger.Error("Failed to link POI in tx", zap.String("poi", poi.Key()), zap.Error(err))
			return errors.ErrDatabaseError
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit tile save", zap.String("tile_id", tile.ID), zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}
