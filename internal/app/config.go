// Package app holds process-level configuration loaded from the
// environment.
package app

import (
	"github.com/kelseyhightower/envconfig"

	"github.com/mcrovella/fluxtwin/internal/database"
)

type Config struct {
	DatabaseURL string `envconfig:"FLUXTWIN_DATABASE_URL"`
	AuthToken   string `envconfig:"FLUXTWIN_AUTH_TOKEN"`

	Workers int `envconfig:"FLUXTWIN_WORKERS" default:"4"`
}

// New loads the config, defaulting the database URL to a local file under
// the XDG data dir when unset.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		url, err := database.DefaultURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = url
	}
	return &cfg, nil
}
