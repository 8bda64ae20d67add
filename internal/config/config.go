package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Source   SourceConfig
	Curation CurationConfig
	Log      LogConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig выбирает бэкенд персистентности.
// При недоступности предпочитаемого бэкенда выполняется откат на второй.
type StorageConfig struct {
	Backend string // "postgres" | "redis"
}

type CacheConfig struct {
	TileSizeDeg      float64
	TileCacheTTLDays int
	MaxPOIs          int
	TileFetchLimit   int
	FetchBatchSize   int
	FetchBatchDelay  time.Duration
}

// TileCacheTTL возвращает TTL тайлового кеша как Duration
func (c *CacheConfig) TileCacheTTL() time.Duration {
	return time.Duration(c.TileCacheTTLDays) * 24 * time.Hour
}

type SourceConfig struct {
	Endpoints      []string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

type CurationConfig struct {
	URL            string
	RequestTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	BatchSize     int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("API_HOST"),
			Port:        viper.GetInt("API_PORT"),
			Env:         viper.GetString("API_ENV"),
			CORSOrigins: viper.GetString("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Storage: StorageConfig{
			Backend: viper.GetString("STORAGE_BACKEND"),
		},
		Cache: CacheConfig{
			TileSizeDeg:      viper.GetFloat64("TILE_SIZE_DEG"),
			TileCacheTTLDays: viper.GetInt("TILE_CACHE_TTL_DAYS"),
			MaxPOIs:          viper.GetInt("MAX_POIS"),
			TileFetchLimit:   viper.GetInt("TILE_FETCH_LIMIT"),
			FetchBatchSize:   viper.GetInt("FETCH_BATCH_SIZE"),
			FetchBatchDelay:  time.Duration(viper.GetInt("FETCH_BATCH_DELAY_MS")) * time.Millisecond,
		},
		Source: SourceConfig{
			Endpoints:      parseEndpoints(viper.GetString("OVERPASS_URLS")),
			MaxRetries:     viper.GetInt("SOURCE_MAX_RETRIES"),
			RetryBaseDelay: time.Duration(viper.GetInt("SOURCE_RETRY_BASE_DELAY_MS")) * time.Millisecond,
			RequestTimeout: time.Duration(viper.GetInt("SOURCE_REQUEST_TIMEOUT")) * time.Second,
		},
		Curation: CurationConfig{
			URL:            viper.GetString("CURATION_URL"),
			RequestTimeout: time.Duration(viper.GetInt("CURATION_REQUEST_TIMEOUT")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:       viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup: viper.GetString("WORKER_CONSUMER_GROUP"),
			BatchSize:     viper.GetInt("WORKER_BATCH_SIZE"),
		},
	}

	// Set default values if not provided
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "postgres"
	}
	if cfg.Cache.TileSizeDeg == 0 {
		cfg.Cache.TileSizeDeg = 0.25
	}
	if cfg.Cache.TileCacheTTLDays == 0 {
		cfg.Cache.TileCacheTTLDays = 30
	}
	if cfg.Cache.MaxPOIs == 0 {
		cfg.Cache.MaxPOIs = 1000
	}
	if cfg.Cache.TileFetchLimit == 0 {
		cfg.Cache.TileFetchLimit = 1000
	}
	if cfg.Cache.FetchBatchSize == 0 {
		cfg.Cache.FetchBatchSize = 3
	}
	if cfg.Cache.FetchBatchDelay == 0 {
		cfg.Cache.FetchBatchDelay = 500 * time.Millisecond
	}
	if len(cfg.Source.Endpoints) == 0 {
		cfg.Source.Endpoints = []string{
			"https://overpass-api.de/api/interpreter",
			"https://overpass.kumi.systems/api/interpreter",
			"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
		}
	}
	if cfg.Source.MaxRetries == 0 {
		cfg.Source.MaxRetries = 3
	}
	if cfg.Source.RetryBaseDelay == 0 {
		cfg.Source.RetryBaseDelay = 2000 * time.Millisecond
	}
	if cfg.Source.RequestTimeout == 0 {
		cfg.Source.RequestTimeout = 60 * time.Second
	}
	if cfg.Curation.RequestTimeout == 0 {
		cfg.Curation.RequestTimeout = 30 * time.Second
	}
	if cfg.Worker.ConsumerGroup == "" {
		cfg.Worker.ConsumerGroup = "tile-refresh-workers"
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 10
	}

	return cfg, nil
}

func parseEndpoints(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// DSN собирает строку подключения libpq из параметров конфигурации
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
