package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cuckoostore/internal/logging"
)

// Config represents the top-level configuration for a cuckoostore engine.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeConfig contains node-specific identification.
type NodeConfig struct {
	ID string `yaml:"id"`
}

// EngineConfig contains the tunables the tagged cuckoo engine accepts at
// construction time.
type EngineConfig struct {
	CapacityHint      uint64  `yaml:"capacity_hint"`       // expected number of items
	FingerprintBits   uint8   `yaml:"fingerprint_bits"`    // tag width b, e.g. 8, 12, 16
	MaxCuckooCount    int     `yaml:"max_cuckoo_count"`    // relocation budget before falling to the victim cache
	TargetLoadFactor  float64 `yaml:"target_load_factor"`  // load factor above which N is doubled at construction
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level         string `yaml:"level"`          // debug, info, warn, error, fatal
	EnableConsole bool   `yaml:"enable_console"` // enable console output
	BufferSize    int    `yaml:"buffer_size"`    // async log buffer size
}

// Load reads and parses the configuration file. A missing file is not an
// error: the caller gets the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Node: NodeConfig{
			ID: "cuckoostore-node-1",
		},
		Engine: EngineConfig{
			CapacityHint:     1 << 16,
			FingerprintBits:  12,
			MaxCuckooCount:   500,
			TargetLoadFactor: 0.96,
		},
		Logging: LoggingConfig{
			Level:         "info",
			EnableConsole: true,
			BufferSize:    1000,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info(context.Background(), logging.ComponentConfig, logging.ActionValidation,
				fmt.Sprintf("configuration file %s not found, using defaults", path))
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Info(context.Background(), logging.ComponentConfig, logging.ActionValidation,
		fmt.Sprintf("configuration loaded from %s", path))

	return cfg, nil
}

// Validate checks that the configuration describes a constructible engine.
func (c *Config) Validate() error {
	if c.Node.ID == "" {
		return fmt.Errorf("node.id cannot be empty")
	}
	if c.Engine.FingerprintBits == 0 || c.Engine.FingerprintBits > 32 {
		return fmt.Errorf("engine.fingerprint_bits must be between 1 and 32")
	}
	if c.Engine.MaxCuckooCount <= 0 {
		return fmt.Errorf("engine.max_cuckoo_count must be > 0")
	}
	if c.Engine.TargetLoadFactor <= 0 || c.Engine.TargetLoadFactor > 1 {
		return fmt.Errorf("engine.target_load_factor must be in (0, 1]")
	}
	return nil
}
