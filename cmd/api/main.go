package main

// @title Route POI Service API
// @version 1.0.0
// @description Сервис поиска точек интереса (POI) вдоль маршрута для планировщика поездок. Строит сетку географических тайлов, кэширует выгрузки из OpenStreetMap и возвращает отобранные POI рядом с коридором маршрута.
// @description
// @description Основные возможности:
// @description - Поиск POI вдоль маршрута или внутри ограничивающего прямоугольника
// @description - Двухуровневый тайловый кэш с фоновым обновлением устаревших тайлов
// @description - Фильтрация по категориям, дедупликация и стратифицированная выборка
// @description - Справочник поддерживаемых категорий POI

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/route-poi-service/docs"
	"github.com/route-poi-service/internal/config"
	httpDelivery "github.com/route-poi-service/internal/delivery/http"
	"github.com/route-poi-service/internal/delivery/http/handler"
	"github.com/route-poi-service/internal/infrastructure/curation"
	"github.com/route-poi-service/internal/infrastructure/overpass"
	"github.com/route-poi-service/internal/pkg/logger"
	redisrepo "github.com/route-poi-service/internal/repository/redis"
	"github.com/route-poi-service/internal/repository/storage"
	"github.com/route-poi-service/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Route POI Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	// 3. Connect to Redis
	redisClient, err := redisrepo.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()
	log.Info("Redis connected")

	// 4. Select storage backend (postgres with redis fallback)
	backends, err := storage.Select(cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Failed to close storage backend", zap.Error(err))
		}
	}()
	log.Info("Storage backend ready", zap.String("backend", backends.Name))

	// 5. Initialize external clients
	sourceClient := overpass.NewOverpassClient(&cfg.Source, log)
	curationClient := curation.NewCurationClient(&cfg.Curation, log)
	refreshQueue := redisrepo.NewRefreshQueue(redisClient)

	log.Info("External clients initialized",
		zap.Int("source_endpoints", len(cfg.Source.Endpoints)))

	// 6. Initialize Use Cases
	tileCacheUC := usecase.NewTileCacheUseCase(
		backends.POIs,
		backends.Tiles,
		sourceClient,
		refreshQueue,
		log,
		cfg.Cache.TileCacheTTL(),
		cfg.Cache.TileFetchLimit,
	)

	routePOIUC := usecase.NewRoutePOIUseCase(
		tileCacheUC,
		sourceClient,
		curationClient,
		log,
		cfg.Cache.TileSizeDeg,
		cfg.Cache.MaxPOIs,
		cfg.Cache.FetchBatchSize,
		cfg.Cache.FetchBatchDelay,
	)

	log.Info("Use cases initialized")

	// 7. Initialize HTTP Handlers
	routePOIHandler := handler.NewRoutePOIHandler(routePOIUC, log)
	categoryHandler := handler.NewCategoryHandler(log)

	// 8. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		routePOIHandler,
		categoryHandler,
	)

	log.Info("HTTP server initialized")

	// 9. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
