package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации экспортёра.
// Незаданные поля добираются из переменных окружения и значений по умолчанию.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	World   WorldConfig   `yaml:"world"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`
}

type ExportConfig struct {
	Workers             int    `yaml:"workers"`
	CalculateCornerUVs  bool   `yaml:"calculate_corner_uvs"`
	SubdivideForCorners bool   `yaml:"subdivide_for_corners"`
	WriteCornerUVs      bool   `yaml:"write_corner_uvs"`
	AtlasScale          int    `yaml:"atlas_scale"`
	BlockDefs           string `yaml:"block_defs"`
}

type WorldConfig struct {
	Seed   int64 `yaml:"seed"`
	Size   int   `yaml:"size"`
	MinY   int   `yaml:"min_y"`
	Height int   `yaml:"height"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// Redis: необязательный быстрый уровень кеша поверх BadgerDB
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// EventsConfig: шина событий прогресса; без nats_url события живут в памяти процесса
type EventsConfig struct {
	NATSURL   string        `yaml:"nats_url"`
	Stream    string        `yaml:"stream"`
	Retention time.Duration `yaml:"retention"`
	Buffer    int           `yaml:"buffer"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			CalculateCornerUVs:  true,
			SubdivideForCorners: true,
			WriteCornerUVs:      true,
			AtlasScale:          1,
		},
		World: WorldConfig{
			Seed:   1,
			Size:   4,
			MinY:   0,
			Height: 64,
		},
		Storage: StorageConfig{
			Path: "data/meshcache",
		},
		Events: EventsConfig{
			Stream:    "VOXEL_EXPORT",
			Retention: 24 * time.Hour,
			Buffer:    1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetWorkers возвращает число воркеров: config -> env -> GOMAXPROCS
func (e *ExportConfig) GetWorkers() int {
	return getIntWithEnvFallback(e.Workers, "VOXEL_EXPORT_WORKERS", runtime.GOMAXPROCS(0))
}

// GetAtlasScale возвращает масштаб атласа с поддержкой fallback значений
func (e *ExportConfig) GetAtlasScale() int {
	return getIntWithEnvFallback(e.AtlasScale, "VOXEL_EXPORT_ATLAS_SCALE", 1)
}

// GetAddr возвращает адрес эндпоинта метрик; пустая строка — метрики не публикуются
func (m *MetricsConfig) GetAddr() string {
	if m.Addr != "" {
		return m.Addr
	}
	return os.Getenv("VOXEL_EXPORT_METRICS_ADDR")
}

// GetPath возвращает путь к кэшу мешей с поддержкой fallback значений
func (s *StorageConfig) GetPath() string {
	if s.Path != "" {
		return s.Path
	}
	if env := os.Getenv("VOXEL_EXPORT_STORAGE_PATH"); env != "" {
		return env
	}
	return "data/meshcache"
}

// GetRedisURL возвращает адрес Redis; пустая строка — Redis не используется
func (s *StorageConfig) GetRedisURL() string {
	if s.RedisURL != "" {
		return s.RedisURL
	}
	return os.Getenv("VOXEL_EXPORT_REDIS_URL")
}

// GetNATSURL возвращает адрес NATS; пустая строка — in-memory шина
func (e *EventsConfig) GetNATSURL() string {
	if e.NATSURL != "" {
		return e.NATSURL
	}
	return os.Getenv("VOXEL_EXPORT_NATS_URL")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

// Validate проверяет значения, которые нельзя исправить по умолчанию
func (c *Config) Validate() error {
	if c.World.Size < 1 {
		return fmt.Errorf("world.size должен быть положительным: %d", c.World.Size)
	}
	if c.World.Height < 1 || c.World.Height%16 != 0 {
		return fmt.Errorf("world.height должен быть кратен 16: %d", c.World.Height)
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("export.workers не может быть отрицательным: %d", c.Export.Workers)
	}
	if c.Events.Buffer < 0 {
		return fmt.Errorf("events.buffer не может быть отрицательным: %d", c.Events.Buffer)
	}
	if c.Export.AtlasScale < 0 {
		return fmt.Errorf("export.atlas_scale не может быть отрицательным: %d", c.Export.AtlasScale)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV VOXEL_EXPORT_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_EXPORT_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
