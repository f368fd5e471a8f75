package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	Env            string   `mapstructure:"ENV"`
	HTTPPort       string   `mapstructure:"HTTP_PORT"`
	DatabaseDriver string   `mapstructure:"DATABASE_DRIVER"`
	DatabaseDSN    string   `mapstructure:"DATABASE_DSN"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	SeedCSV        string   `mapstructure:"SEED_CSV"`
	APIURL         string   `mapstructure:"API_URL"`
	MutationMode   string   `mapstructure:"MUTATION_MODE"`
}

var keys = []string{
	"ENV", "HTTP_PORT", "DATABASE_DRIVER", "DATABASE_DSN", "CORS_ORIGINS",
	"LOG_LEVEL", "SEED_CSV", "API_URL", "MUTATION_MODE",
}

// Load reads .env when present, then environment variables with reasonable
// defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "rxstock.db")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_CSV", "assets/medicines.csv")
	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("MUTATION_MODE", "pessimistic")
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Warn().Str("value", cfg.HTTPPort).Msg("invalid HTTP_PORT, defaulting to 8080")
		cfg.HTTPPort = "8080"
	}

	switch cfg.DatabaseDriver {
	case "sqlite", "pgx":
	case "postgres":
		cfg.DatabaseDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
