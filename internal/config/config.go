package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michaelgoldpiano/datastructures/arraylist"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Policy PolicyConfig `yaml:"policy"`
	Soak   SoakConfig   `yaml:"soak"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// PolicyConfig mirrors arraylist.Policy. A zero MaxCapacity means no
// ceiling beyond the int range.
type PolicyConfig struct {
	MinCapacity      int     `yaml:"min_capacity" default:"10"`
	MinFilledRatio   float64 `yaml:"min_filled_ratio" default:"0.3"`
	IdealFilledRatio float64 `yaml:"ideal_filled_ratio" default:"0.5"`
	MaxFilledRatio   float64 `yaml:"max_filled_ratio" default:"0.7"`
	MaxCapacity      int     `yaml:"max_capacity"`
}

type SoakConfig struct {
	Lists         int     `yaml:"lists" default:"8"`
	Operations    int     `yaml:"operations" default:"100000"`
	RatePerSecond float64 `yaml:"rate_per_second"` // 0 disables pacing
	Burst         int     `yaml:"burst" default:"100"`
	BudgetSlots   int     `yaml:"budget_slots" default:"65536"`
	PoolIdle      int     `yaml:"pool_idle" default:"4"`
	Seed          uint64  `yaml:"seed"`
	ReportPath    string  `yaml:"report_path"` // ".zst" suffix compresses
}

type ServerConfig struct {
	MetricsPort     int           `yaml:"metrics_port" default:"9090"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type LogConfig struct {
	Level       string `yaml:"level" default:"info"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	p := arraylist.DefaultPolicy()
	return &Config{
		Policy: PolicyConfig{
			MinCapacity:      p.MinCapacity,
			MinFilledRatio:   p.MinFilledRatio,
			IdealFilledRatio: p.IdealFilledRatio,
			MaxFilledRatio:   p.MaxFilledRatio,
		},
		Soak: SoakConfig{
			Lists:       8,
			Operations:  100000,
			Burst:       100,
			BudgetSlots: 65536,
			PoolIdle:    4,
		},
		Server: ServerConfig{
			MetricsPort:     9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration can be used to run
func (c *Config) Validate() error {
	if err := c.Policy.ToPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Soak.Lists < 1 {
		return fmt.Errorf("%w: soak.lists must be positive", ErrInvalidConfig)
	}
	if c.Soak.Operations < 0 {
		return fmt.Errorf("%w: soak.operations must not be negative", ErrInvalidConfig)
	}
	if c.Soak.RatePerSecond < 0 {
		return fmt.Errorf("%w: soak.rate_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Soak.RatePerSecond > 0 && c.Soak.Burst < 1 {
		return fmt.Errorf("%w: soak.burst must be positive when pacing", ErrInvalidConfig)
	}
	if c.Soak.PoolIdle < 0 {
		return fmt.Errorf("%w: soak.pool_idle must not be negative", ErrInvalidConfig)
	}
	if c.Soak.BudgetSlots < 0 {
		return fmt.Errorf("%w: soak.budget_slots must not be negative", ErrInvalidConfig)
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("%w: server.metrics_port %d out of range", ErrInvalidConfig, c.Server.MetricsPort)
	}
	return nil
}

// ToPolicy converts to the arraylist capacity policy
func (p PolicyConfig) ToPolicy() arraylist.Policy {
	maxCapacity := p.MaxCapacity
	if maxCapacity == 0 {
		maxCapacity = math.MaxInt
	}
	return arraylist.Policy{
		MinCapacity:      p.MinCapacity,
		MinFilledRatio:   p.MinFilledRatio,
		IdealFilledRatio: p.IdealFilledRatio,
		MaxFilledRatio:   p.MaxFilledRatio,
		MaxCapacity:      maxCapacity,
	}
}
