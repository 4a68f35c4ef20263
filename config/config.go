package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config is the engine configuration. Zero fan-out values let the index
// derive them from the page capacity for its key width.
type Config struct {
	DBFile          string `toml:"db_file"`
	PoolSize        int    `toml:"pool_size"`
	LeafMaxSize     int    `toml:"leaf_max_size"`
	InternalMaxSize int    `toml:"internal_max_size"`
	LogLevel        string `toml:"log_level"`
}

func Default() *Config {
	return &Config{
		DBFile:   "tembo.db",
		PoolSize: 64,
		LogLevel: "warn",
	}
}

// Load reads a TOML config file; fields absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	return cfg, nil
}
