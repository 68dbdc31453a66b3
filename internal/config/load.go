package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
// args are the command-line arguments without the program name.
func Load(args []string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	f, err := parseFlags(args)
	if err != nil {
		return nil, err
	}

	// Explicit path takes priority over the search
	configPath := f.config
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./watersim.yaml",
		filepath.Join("config", "watersim.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.World.Generator {
	case "flat", "noise":
	default:
		return fmt.Errorf("unknown world generator %q", c.World.Generator)
	}
	if c.Simulation.ChunkHeight <= 0 {
		return fmt.Errorf("simulation.chunk_height must be positive, got %d", c.Simulation.ChunkHeight)
	}
	if c.Simulation.LoadRadius < 0 {
		return fmt.Errorf("simulation.load_radius must not be negative, got %d", c.Simulation.LoadRadius)
	}
	if c.Simulation.Ticks < 0 {
		return fmt.Errorf("simulation.ticks must not be negative, got %d", c.Simulation.Ticks)
	}
	return nil
}
