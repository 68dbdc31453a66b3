// Package config handles server configuration loading and management.
package config

import (
	"time"

	"voxelwater/internal/water"
)

// Config holds all server settings.
type Config struct {
	Simulation  SimulationConfig  `yaml:"simulation"`
	World       WorldConfig       `yaml:"world"`
	Water       water.Params      `yaml:"water"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Broadcast   BroadcastConfig   `yaml:"broadcast"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	TickRate     int           `yaml:"tick_rate"` // ticks per second
	Ticks        int           `yaml:"ticks"`     // stop after this many ticks, 0 runs until interrupted
	LoadRadius   int           `yaml:"load_radius"`
	ChunkHeight  int           `yaml:"chunk_height"` // chunk layers loaded, starting at chunk Y 0
	SaveInterval time.Duration `yaml:"save_interval"`
}

// WorldConfig holds terrain generation settings.
type WorldConfig struct {
	Generator    string `yaml:"generator"` // "flat" or "noise"
	Seed         int64  `yaml:"seed"`
	GroundHeight int    `yaml:"ground_height"`
	SeaLevel     int    `yaml:"sea_level"`
}

// PersistenceConfig holds the water database location.
type PersistenceConfig struct {
	Path string `yaml:"path"` // empty disables saving
}

// BroadcastConfig holds viewer websocket settings.
type BroadcastConfig struct {
	Addr        string `yaml:"addr"` // empty disables the viewer endpoint
	SendBuffer  int    `yaml:"send_buffer"`
	MeshWorkers int    `yaml:"mesh_workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate:     20,
			Ticks:        0,
			LoadRadius:   4,
			ChunkHeight:  5,
			SaveInterval: 30 * time.Second,
		},
		World: WorldConfig{
			Generator:    "noise",
			Seed:         1,
			GroundHeight: 40,
			SeaLevel:     48,
		},
		Water: water.DefaultParams(),
		Persistence: PersistenceConfig{
			Path: "data/water.db",
		},
		Broadcast: BroadcastConfig{
			Addr:        ":8765",
			SendBuffer:  64,
			MeshWorkers: 2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// TickInterval is the wall-clock duration of one tick.
func (c *Config) TickInterval() time.Duration {
	if c.Simulation.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(c.Simulation.TickRate)
}
