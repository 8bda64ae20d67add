package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/domain/repository"
	"github.com/route-poi-service/internal/pkg/errors"
	"go.uber.org/zap"
)

// idChunkSize ограничивает длину списка параметров в одном запросе
const idChunkSize = 900

type poiRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPOIRepository(db *DB) repository.POIRepository {
	return &poiRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *poiRepository) Upsert(ctx context.Context, poi *domain.POI) error {
	query := `
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
			description = COALESCE(EXCLUDED.description, pois.description),
			updated_at = NOW()
	`

	tagsJSON, err := json.Marshal(poi.Tags)
	if err != nil {
		r.logger.Error("Failed to marshal POI tags", zap.String("poi", poi.Key()), zap.Error(err))
		return errors.ErrDatabaseError
	}

	_, err = r.db.ExecContext(ctx, query,
		poi.Key(), poi.ID, poi.SourceType, poi.Name, poi.Lat, poi.Lon,
		poi.Category, poi.PrimaryAttribute, tagsJSON, poi.Description,
	)
	if err != nil {
		r.logger.Error("Failed to upsert POI", zap.String("poi", poi.Key()), zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

func (r *poiRepository) GetByIDs(ctx context.Context, keys []string) ([]*domain.POI, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var pois []*domain.POI
	for start := 0; start < len(keys); start += idChunkSize {
		end := start + idChunkSize
		if end > len(keys) {
			end = len(keys)
		}

		chunk, err := r.getChunk(ctx, keys[start:end])
		if err != nil {
			return nil, err
		}
		pois = append(pois, chunk...)
	}

	return pois, nil
}

func (r *poiRepository) getChunk(ctx context.Context, keys []string) ([]*domain.POI, error) {
	query := `
		SELECT source_id, source_type, name, lat, lon,
		       category, primary_attribute, tags, description
		FROM pois
		WHERE poi_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		r.logger.Error("Failed to get POIs by ids", zap.Int("count", len(keys)), zap.Error(err))
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

// rowScanner покрывает *sql.Rows и *sql.Row
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPOI(row rowScanner) (*domain.POI, error) {
	var poi domain.POI
	var tagsJSON []byte

	err := row.Scan(
		&poi.ID, &poi.SourceType, &poi.Name, &poi.Lat, &poi.Lon,
		&poi.Category, &poi.PrimaryAttribute, &tagsJSON, &poi.Description,
	)
	if err != nil {
		return nil, err
	}

	if len(tagsJSON) > 0 {
		tags := make(map[string]string)
		if err := json.Unmarshal(tagsJSON, &tags); err == nil {
			poi.Tags = tags
		}
	}

	return &poi, nil
}
