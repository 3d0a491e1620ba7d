// Package config loads buffer pool configuration from a YAML file using
// viper, following the same mapstructure-tagged struct + ReadInConfig +
// Unmarshal pattern used elsewhere in this codebase's ancestry.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// BufferPoolConfig holds the tunables needed to construct a buffer pool
// manager and its collaborators.
type BufferPoolConfig struct {
	// Capacity is the number of frames in the pool.
	Capacity int `mapstructure:"capacity"`

	// K is the history depth for the LRU-K replacer.
	K int `mapstructure:"k"`

	// DataFile is the path to the disk manager's backing file.
	DataFile string `mapstructure:"data_file"`

	// LogFile is the path to the log manager's backing file. Empty means
	// no log manager is constructed.
	LogFile string `mapstructure:"log_file"`
}

// Config is the top-level configuration document.
type Config struct {
	BufferPool BufferPoolConfig `mapstructure:"buffer_pool"`
}

// DefaultCapacity matches the teacher's own DefaultCapacity.
const DefaultCapacity = 128

// DefaultK is a conservative default history depth for LRU-K.
const DefaultK = 2

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BufferPool.Capacity <= 0 {
		c.BufferPool.Capacity = DefaultCapacity
	}
	if c.BufferPool.K <= 0 {
		c.BufferPool.K = DefaultK
	}
}
