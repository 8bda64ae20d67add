package storage

import (
	"fmt"

	"github.com/route-poi-service/internal/config"
	"github.com/route-poi-service/internal/domain/repository"
	"github.com/route-poi-service/internal/repository/postgres"
	redisrepo "github.com/route-poi-service/internal/repository/redis"
	"go.uber.org/zap"
)

// Backends - выбранный бэкенд персистентности
type Backends struct {
	Name  string
	POIs  repository.POIRepository
	Tiles repository.TileRepository
	close func() error
}

func (b *Backends) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Select инициализирует предпочитаемый бэкенд хранения; при сбое
// инициализации выполняется откат на следующий в цепочке.
// Redis-соединение уже установлено вызывающим (оно нужно и очереди
// обновления), поэтому откат на redis не может не удаться.
func Select(cfg *config.Config, rd *redisrepo.Redis, logger *zap.Logger) (*Backends, error) {
	chain := []string{cfg.Storage.Backend}
	if cfg.Storage.Backend != "redis" {
		chain = append(chain, "redis")
	}

	for i, name := range chain {
		if i > 0 {
			logger.Warn("Falling back to next storage backend",
				zap.String("backend", name))
		}

		switch name {
		case "postgres":
			db, err := postgres.New(&cfg.Database, logger)
			if err != nil {
				logger.Warn("PostgreSQL backend unavailable", zap.Error(err))
				continue
			}
			return &Backends{
				Name:  "postgres",
				POIs:  postgres.NewPOIRepository(db),
				Tiles: postgres.NewTileRepository(db),
				close: db.Close,
			}, nil

		case "redis":
			pois := redisrepo.NewPOIRepository(rd)
			return &Backends{
				Name:  "redis",
				POIs:  pois,
				Tiles: redisrepo.NewTileRepository(rd, pois),
			}, nil

		default:
			logger.Warn("Unknown storage backend", zap.String("backend", name))
		}
	}

	return nil, fmt.Errorf("no storage backend available")
}
