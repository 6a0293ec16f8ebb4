// config реализует конфигурацию blog-service: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pribylovaa/go-blog-lab/internal/engagement"
)

// Поддерживаемые бэкенды хранилища.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	S3       S3Config       `yaml:"s3"`
	Image    ImageConfig    `yaml:"image"`
	Cache    CacheConfig    `yaml:"cache"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Limits   LimitsConfig   `yaml:"limits"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки HTTP-сервера (API + health/metrics).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// StorageConfig — выбор источника истины: реляционный или документный.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"postgres"`
}

// PostgresConfig — подключение к PostgreSQL (используется при backend=postgres).
type PostgresConfig struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

// MongoConfig — подключение к MongoDB (используется при backend=mongo).
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL"`
}

// RedisConfig — кэш. Пустой URL — сервис работает без кэша.
type RedisConfig struct {
	URL    string `yaml:"url" env:"REDIS_URL"`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"blog:"`
}

// S3Config — хранилище изображений постов. Пустой Endpoint — загрузка изображений отключена.
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET" env-default:"post-images"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"10m"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// ImageConfig — ограничения на загружаемые изображения.
type ImageConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"IMAGE_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"IMAGE_ALLOWED_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp"`
}

// CacheConfig — TTL записей cache-aside по видам сущностей.
type CacheConfig struct {
	PostTTL    time.Duration `yaml:"post_ttl" env:"CACHE_POST_TTL" env-default:"5m"`
	UserTTL    time.Duration `yaml:"user_ttl" env:"CACHE_USER_TTL" env-default:"10m"`
	RankingTTL time.Duration `yaml:"ranking_ttl" env:"CACHE_RANKING_TTL" env-default:"1m"`
}

// RankingConfig — веса вовлечённости и обновление trending-лидерборда.
type RankingConfig struct {
	Weights engagement.Weights `yaml:"weights"`
	// Период полной пересборки лидерборда из хранилища; 0 — воркер не запускается.
	TrendingRefresh time.Duration `yaml:"trending_refresh" env:"TRENDING_REFRESH" env-default:"5m"`
	// Сколько постов держать в лидерборде.
	TrendingSize int `yaml:"trending_size" env:"TRENDING_SIZE" env-default:"100"`
}

// LimitsConfig — лимиты выдачи списков.
type LimitsConfig struct {
	// limit=0 -> берём Default; верхняя граница — Max.
	Default int `yaml:"default" env:"DEFAULT_LIMIT" env-default:"20"`
	Max     int `yaml:"max"     env:"MAX_LIMIT"     env-default:"100"`
}

// TimeoutConfig — сервисные таймауты (общий дедлайн обработки запроса).
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}

		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := readFile("local.yaml"); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required for storage.backend=postgres")
		}
	case BackendMongo:
		if c.Mongo.URL == "" {
			return fmt.Errorf("mongo.url is required for storage.backend=mongo")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendPostgres, BackendMongo, c.Storage.Backend)
	}

	if c.S3.Endpoint != "" && (c.S3.RootUser == "" || c.S3.RootPassword == "" || c.S3.Bucket == "") {
		return fmt.Errorf("s3.root_user, s3.root_password and s3.bucket are required when s3.endpoint is set")
	}

	if c.Cache.PostTTL <= 0 || c.Cache.UserTTL <= 0 || c.Cache.RankingTTL <= 0 {
		return fmt.Errorf("cache ttls must be > 0")
	}

	if c.Limits.Default <= 0 {
		return fmt.Errorf("limits.default must be > 0")
	}

	if c.Limits.Max <= 0 {
		return fmt.Errorf("limits.max must be > 0")
	}

	if c.Limits.Default > c.Limits.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}

	w := c.Ranking.Weights
	if w.Like < 0 || w.Comment < 0 || w.View < 0 {
		return fmt.Errorf("ranking.weights must be >= 0")
	}

	if c.Ranking.TrendingRefresh < 0 {
		return fmt.Errorf("ranking.trending_refresh must be >= 0")
	}

	if c.Ranking.TrendingSize <= 0 {
		return fmt.Errorf("ranking.trending_size must be > 0")
	}

	return nil
}
