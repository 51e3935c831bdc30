package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"CAL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CAL_DB_MAX_CONNS" default:"8"`

	SourcesFile string `envconfig:"SOURCES_FILE" default:"sources.yaml"`

	MatchMinScore    float64 `envconfig:"MATCH_MIN_SCORE" default:"0.65"`
	MatchTitleWeight float64 `envconfig:"MATCH_TITLE_WEIGHT" default:"0.5"`
	MatchVenueWeight float64 `envconfig:"MATCH_VENUE_WEIGHT" default:"0.25"`
	MatchTimeWeight  float64 `envconfig:"MATCH_TIME_WEIGHT" default:"0.15"`
	MatchGeoWeight   float64 `envconfig:"MATCH_GEO_WEIGHT" default:"0.10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("CAL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CAL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CAL_DB_MIN_CONNS (%d) cannot exceed CAL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.SourcesFile) == "" {
		return fmt.Errorf("SOURCES_FILE is required")
	}
	if c.MatchMinScore < 0 || c.MatchMinScore > 1 {
		return fmt.Errorf("MATCH_MIN_SCORE must be within [0,1], got %f", c.MatchMinScore)
	}
	weightSum := c.MatchTitleWeight + c.MatchVenueWeight + c.MatchTimeWeight + c.MatchGeoWeight
	if math.Abs(weightSum-1) > 1e-9 {
		return fmt.Errorf("match weights must sum to 1.0, got %.4f", weightSum)
	}
	return nil
}
