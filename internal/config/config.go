package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/physics"
	"github.com/annel0/rts-pathfind/internal/vec"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера поиска пути.
// Незаданные поля берутся из Default().
type Config struct {
	Map        MapConfig         `yaml:"map"`
	Grid       GridConfig        `yaml:"grid"`
	MoveGroups [][]string        `yaml:"move_groups"`
	Footprints []FootprintConfig `yaml:"footprints"`
	Engine     EngineConfig      `yaml:"engine"`
	Server     ServerConfig      `yaml:"server"`
	Journal    JournalConfig     `yaml:"journal"`
	Cache      CacheConfig       `yaml:"cache"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Auth       AuthConfig        `yaml:"auth"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// MapConfig — карта из файла (hex-формат) или сгенерированная
type MapConfig struct {
	File   string `yaml:"file"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Seed   int64  `yaml:"seed"`
}

// GridConfig — привязка сетки к мировым координатам (десятичные строки)
type GridConfig struct {
	MinX     string `yaml:"min_x"`
	MinY     string `yaml:"min_y"`
	CellSize string `yaml:"cell_size"`
}

// FootprintConfig — прямоугольник размера коллизии
type FootprintConfig struct {
	ID     int `yaml:"id"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// EngineConfig — прогрев кэшей и диагностика
// Нулевой TickInterval — юниты двигаются только по POST /api/tick.
type EngineConfig struct {
	WarmClearance  bool          `yaml:"warm_clearance"`
	WarmAreas      bool          `yaml:"warm_areas"`
	WarmJumpTables bool          `yaml:"warm_jump_tables"`
	Diagnosis      bool          `yaml:"diagnosis"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	ReplanAfter    int           `yaml:"replan_after"`
}

type ServerConfig struct {
	RESTPort int    `yaml:"rest_port"`
	GinMode  string `yaml:"gin_mode"`
}

// JournalConfig — журнал изменений. Session продолжает прежнюю сессию;
// Follow делает узел репликой, читающей изменения из NATS.
type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	Session       string `yaml:"session"`
	SnapshotEvery int    `yaml:"snapshot_every"`
	NATSURL       string `yaml:"nats_url"`
	Subject       string `yaml:"subject"`
	Follow        bool   `yaml:"follow"`
}

// CacheConfig — кеш ответов поиска: Redis, если задан redis_url, иначе память процесса
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
	MaxKeys  int           `yaml:"max_keys"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// AuthConfig — секрет JWT (base64) и операторы с bcrypt-хешами паролей.
// Пустой секрет выключает проверку токенов.
type AuthConfig struct {
	JWTSecret string            `yaml:"jwt_secret"`
	TokenTTL  time.Duration     `yaml:"token_ttl"`
	Operators map[string]string `yaml:"operators"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию, совпадающую с эталонным стендом:
// две группы передвижения, квадраты 1x1..4x4, все кэши прогреты.
func Default() *Config {
	return &Config{
		Map:  MapConfig{Width: 64, Height: 64, Seed: 1},
		Grid: GridConfig{MinX: "0", MinY: "0", CellSize: "1"},
		MoveGroups: [][]string{
			{"fly"},
			{"marin", "water", "foot"},
		},
		Footprints: []FootprintConfig{
			{ID: 1, Width: 1, Height: 1},
			{ID: 2, Width: 2, Height: 2},
			{ID: 3, Width: 3, Height: 3},
			{ID: 4, Width: 4, Height: 4},
		},
		Engine: EngineConfig{
			WarmClearance:  true,
			WarmAreas:      true,
			WarmJumpTables: true,
			Diagnosis:      true,
			TickInterval:   100 * time.Millisecond,
			ReplanAfter:    3,
		},
		Server: ServerConfig{GinMode: "release"},
		Journal: JournalConfig{
			Path:          "data/journal",
			SnapshotEvery: 256,
			Subject:       "pathfind.mutations",
		},
		Cache:     CacheConfig{TTL: 30 * time.Second, MaxKeys: 4096},
		Telemetry: TelemetryConfig{Endpoint: "localhost:4318", ServiceName: "rts-pathfind"},
		Auth:      AuthConfig{TokenTTL: 12 * time.Hour},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "PATHFIND_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV PATHFIND_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PATHFIND_CONFIG")
	}
	cfg := Default()
	if path == "" {
		return cfg, nil // конфиг не задан — использовать дефолты
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает YAML поверх cfg и проверяет результат
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Map.File == "" && (c.Map.Width <= 0 || c.Map.Height <= 0) {
		return fmt.Errorf("map: нужен file или положительные width/height")
	}
	if _, err := c.Grid.Mapping(); err != nil {
		return err
	}
	if _, err := c.ParseMoveGroups(); err != nil {
		return err
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	if c.Journal.Follow && c.Journal.NATSURL == "" {
		return fmt.Errorf("journal: follow требует nats_url")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.Operators) == 0 {
		return fmt.Errorf("auth: задан jwt_secret, но нет ни одного оператора")
	}
	return nil
}

// Mapping возвращает привязку сетки к мировым координатам
func (g GridConfig) Mapping() (vec.GridMapping, error) {
	minX, err := vec.ParseFixed(g.MinX)
	if err != nil {
		return vec.GridMapping{}, fmt.Errorf("grid.min_x: %w", err)
	}
	minY, err := vec.ParseFixed(g.MinY)
	if err != nil {
		return vec.GridMapping{}, fmt.Errorf("grid.min_y: %w", err)
	}
	cell, err := vec.ParseFixed(g.CellSize)
	if err != nil {
		return vec.GridMapping{}, fmt.Errorf("grid.cell_size: %w", err)
	}
	if cell <= 0 {
		return vec.GridMapping{}, fmt.Errorf("grid.cell_size должен быть положительным")
	}
	return vec.GridMapping{Min: vec.Vec2Fixed{X: minX, Y: minY}, CellSize: cell}, nil
}

// ParseMoveGroups переводит имена групп в маски
func (c *Config) ParseMoveGroups() ([][]pathfind.MoveFunc, error) {
	if len(c.MoveGroups) == 0 {
		return nil, fmt.Errorf("move_groups: пусто")
	}
	seen := make(map[pathfind.MoveFunc]bool)
	groups := make([][]pathfind.MoveFunc, 0, len(c.MoveGroups))
	for i, names := range c.MoveGroups {
		if len(names) == 0 {
			return nil, fmt.Errorf("move_groups[%d]: пустая группа", i)
		}
		group := make([]pathfind.MoveFunc, 0, len(names))
		for _, name := range names {
			move, err := physics.ParseMoveType(name)
			if err != nil {
				return nil, fmt.Errorf("move_groups[%d]: %w", i, err)
			}
			if seen[move] {
				return nil, fmt.Errorf("move_groups[%d]: %s уже в другой группе", i, name)
			}
			seen[move] = true
			group = append(group, move)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Catalog собирает справочник размеров коллизии
func (c *Config) Catalog() (*physics.FootprintCatalog, error) {
	if len(c.Footprints) == 0 {
		return physics.NewFootprintCatalog(), nil
	}
	catalog := physics.NewCatalog()
	for _, fp := range c.Footprints {
		if fp.ID <= 0 || fp.ID > 127 {
			return nil, fmt.Errorf("footprints: недопустимый id %d", fp.ID)
		}
		if err := catalog.Register(pathfind.CollSize(fp.ID), physics.NewBoxCollider(fp.Width, fp.Height)); err != nil {
			return nil, fmt.Errorf("footprints: %w", err)
		}
	}
	return catalog, nil
}

// InitOptions возвращает флаги прогрева движка
func (e EngineConfig) InitOptions() pathfind.InitOptions {
	return pathfind.InitOptions{
		Clearance:  e.WarmClearance,
		Areas:      e.WarmAreas,
		JumpTables: e.WarmJumpTables,
		Diagnosis:  e.Diagnosis,
	}
}
