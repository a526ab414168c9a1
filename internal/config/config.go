// Package config loads service settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration. Defaults run the service
// standalone with a local database file.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DBPath      string `env:"GEARSIM_DB" envDefault:"gearsim.db"`
	CatalogPath string `env:"GEARSIM_CATALOG"`   // optional CSV override
	TrialCap    int    `env:"GEARSIM_TRIAL_CAP"` // 0: library default
	Workers     int    `env:"GEARSIM_WORKERS"`   // 0: GOMAXPROCS
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
