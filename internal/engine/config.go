package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
)

// ErrInvalidConfig - значения конфига вне допустимых границ.
var ErrInvalidConfig = errors.New("invalid config")

// PortEnv переопределяет порт из файла.
const PortEnv = "INHABITED_PORT"

// Config хранит параметры запуска сервера.
type Config struct {
	Server     ServerConfig      `toml:"server"`
	Simulation SimulationConfig  `toml:"simulation"`
	Search     search.Config     `toml:"search"`
	Network    network.HubConfig `toml:"network"`
	Storage    StorageConfig     `toml:"storage"`
	Levels     LevelsConfig      `toml:"levels"`
	Logging    LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Host           string `toml:"host"`
	Port           string `toml:"port"`
	ConnectionKey  string `toml:"connection_key"`
	MaxMessageSize int64  `toml:"max_message_size"`
}

type SimulationConfig struct {
	// Seed - зерно генератора (гнёзда, разброс спавна). 0 - от времени.
	Seed uint64 `toml:"seed"`
	// TickRate должен совпадать с types.LogicFPS: шаг симуляции и
	// предсказание клиента считаются через types.FixedDelta.
	TickRate       int `toml:"tick_rate"`
	MaxPlayers     int `toml:"max_players"`
	BroadcastEvery int `toml:"broadcast_every"`
	MapCount       int `toml:"map_count"`
	StartMap       int `toml:"start_map"`
}

type StorageConfig struct {
	ReplayDir     string `toml:"replay_dir"`
	RecordReplays bool   `toml:"record_replays"`
	ScoreDB       string `toml:"score_db"` // пусто - очки не сохраняются
}

type LevelsConfig struct {
	Path string `toml:"path"` // пусто - встроенный набор уровней
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewConfig создает конфиг по умолчанию.
func NewConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           "10515",
			ConnectionKey:  "dandelion0.1",
			MaxMessageSize: 4096,
		},
		Simulation: SimulationConfig{
			TickRate:       types.LogicFPS,
			MaxPlayers:     MaxPlayers,
			BroadcastEvery: 2,
			MapCount:       5,
		},
		Search:  search.DefaultConfig(),
		Network: network.DefaultHubConfig(),
		Storage: StorageConfig{
			ReplayDir:     "replays",
			RecordReplays: true,
			ScoreDB:       "scores.db",
		},
	}
}

// LoadConfig читает TOML поверх значений по умолчанию.
// Пустой путь - только умолчания и переменные окружения.
func LoadConfig(path string) (Config, error) {
	cfg := NewConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if port := os.Getenv(PortEnv); port != "" {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate проверяет то, без чего симуляция не запустится.
func (c Config) Validate() error {
	if c.Simulation.TickRate != types.LogicFPS {
		return fmt.Errorf("tick_rate %d: only %d is supported: %w", c.Simulation.TickRate, types.LogicFPS, ErrInvalidConfig)
	}
	if c.Simulation.MaxPlayers < 1 || c.Simulation.MaxPlayers > MaxPlayers {
		return fmt.Errorf("max_players %d not in 1..%d: %w", c.Simulation.MaxPlayers, MaxPlayers, ErrInvalidConfig)
	}
	if c.Simulation.BroadcastEvery <= 0 {
		return fmt.Errorf("broadcast_every %d: %w", c.Simulation.BroadcastEvery, ErrInvalidConfig)
	}
	if c.Simulation.MapCount < 0 || c.Simulation.StartMap < 0 || c.Simulation.StartMap > c.Simulation.MapCount {
		return fmt.Errorf("start_map %d, map_count %d: %w", c.Simulation.StartMap, c.Simulation.MapCount, ErrInvalidConfig)
	}
	if c.Search.PathsPerFrame <= 0 || c.Search.MaxPendingJobs <= 0 {
		return fmt.Errorf("search budget %d/%d: %w", c.Search.PathsPerFrame, c.Search.MaxPendingJobs, ErrInvalidConfig)
	}
	return nil
}

// Addr - адрес для http.Server.
func (c Config) Addr() string { return c.Server.Host + ":" + c.Server.Port }
