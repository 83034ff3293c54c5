package utils

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/mdobak/go-xerrors"
)

// Config holds process-level settings sourced from the environment
// (optionally seeded from a .env file loaded in main).
type Config struct {
	RecognizeURL     string `envconfig:"RECOGNIZE_URL" default:""`
	RecognizeToken   string `envconfig:"RECOGNIZE_TOKEN" default:""`
	RecognizeTimeout int    `envconfig:"RECOGNIZE_TIMEOUT_SEC" default:"15"`
	Workers          int    `envconfig:"WORKERS" default:"0"`
	ResultsDB        string `envconfig:"RESULTS_DB" default:"results.db"`
}

// LoadConfig reads configuration from SETFINDER_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("setfinder", &cfg); err != nil {
		return Config{}, xerrors.New("loading configuration", err)
	}
	return cfg, nil
}
