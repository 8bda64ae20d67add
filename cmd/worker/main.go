package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/route-poi-service/internal/config"
	"github.com/route-poi-service/internal/infrastructure/overpass"
	"github.com/route-poi-service/internal/pkg/logger"
	redisrepo "github.com/route-poi-service/internal/repository/redis"
	"github.com/route-poi-service/internal/repository/storage"
	"github.com/route-poi-service/internal/usecase"
	"github.com/route-poi-service/internal/worker"
	"github.com/route-poi-service/internal/worker/refresh"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Tile Refresh Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("batch_size", cfg.Worker.BatchSize),
		zap.String("storage_backend", cfg.Storage.Backend))

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

	// 5. Initialize source client and refresh queue
	sourceClient := overpass.NewOverpassClient(&cfg.Source, log)
	refreshQueue := redisrepo.NewRefreshQueue(redisClient)

	// 6. Initialize use cases
	// Воркер перезагружает тайлы напрямую, повторная постановка в очередь не нужна
	tileCacheUC := usecase.NewTileCacheUseCase(
		backends.POIs,
		backends.Tiles,
		sourceClient,
		nil,
		log,
		cfg.Cache.TileCacheTTL(),
		cfg.Cache.TileFetchLimit,
	)

	// 7. Initialize workers
	refreshWorker := refresh.NewTileRefreshWorker(
		refreshQueue,
		tileCacheUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.BatchSize,
		cfg.Cache.TileSizeDeg,
		log,
	)

	// 8. Create worker manager and register workers
	workerManager := worker.NewManager(log)
	workerManager.Register(refreshWorker)

	// 9. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancel()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
