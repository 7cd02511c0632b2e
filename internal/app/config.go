package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/scale-backend/internal/catalog"
	"github.com/xtding233/scale-backend/internal/drycost"
)

// Config is the process configuration.
type Config struct {
	ConfigDir        string        `yaml:"config_dir"` // scale type database, e.g. ./GameData
	SavePath         string        `yaml:"save_path"`
	Mode             string        `yaml:"mode"` // "", SANDBOX, CAREER, SCIENCE_SANDBOX
	SavePollInterval time.Duration `yaml:"save_poll_interval"`

	Catalog CatalogConfig `yaml:"catalog"`
	DryCost DryCostConfig `yaml:"dry_cost"`

	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

type CatalogConfig struct {
	Driver string `yaml:"driver"` // sqlite3 | postgres
	DSN    string `yaml:"dsn"`
}

type DryCostConfig struct {
	WaitRounds    int           `yaml:"wait_rounds"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	ScaleModule   string        `yaml:"scale_module"`
	CostExclusion []string      `yaml:"cost_exclusion"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		ConfigDir:        "GameData",
		SavePollInterval: 2 * time.Second,
		Catalog: CatalogConfig{
			Driver: catalog.DriverSQLite,
			DSN:    "catalog.db",
		},
		DryCost: DryCostConfig{
			WaitRounds:    drycost.DefaultWaitRounds,
			TickInterval:  drycost.DefaultTickInterval,
			ScaleModule:   drycost.DefaultScaleModule,
			CostExclusion: append([]string(nil), drycost.DefaultCostExclusion...),
		},
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
	}
}

// LoadConfig reads path over the defaults. An empty path or a missing file
// yields the defaults. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.fillDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fillDefaults restores defaults for fields a file explicitly zeroed.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.ConfigDir == "" {
		c.ConfigDir = def.ConfigDir
	}
	if c.SavePollInterval == 0 {
		c.SavePollInterval = def.SavePollInterval
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = def.Catalog.Driver
	}
	if c.DryCost.WaitRounds == 0 {
		c.DryCost.WaitRounds = def.DryCost.WaitRounds
	}
	if c.DryCost.TickInterval == 0 {
		c.DryCost.TickInterval = def.DryCost.TickInterval
	}
	if c.DryCost.ScaleModule == "" {
		c.DryCost.ScaleModule = def.DryCost.ScaleModule
	}
}
