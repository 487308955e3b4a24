package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the runtime configuration, authored as toml.
type Config struct {
	// AssetsPath is the directory watched for asset hot reload.
	AssetsPath string `toml:"assets_path"`
	// ScriptsPath is the directory holding event scripts.
	ScriptsPath string `toml:"scripts_path"`
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		AssetsPath:  "assets",
		ScriptsPath: "scripts",
		LogLevel:    "warn",
	}
}

// Load reads and decodes a toml configuration file. Missing fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
