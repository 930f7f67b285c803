package config

import (
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/envutil"
)

// Config holds server configuration.
type Config struct {
	Port           string
	LogMode        string
	DatabaseDriver string
	DatabaseURL    string
	// SeedPath is an optional catalog file imported at boot.
	SeedPath           string
	StrictMode         bool
	TraceLimit         int
	SelectorFirstMatch bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:               envutil.String("PORT", "8080"),
		LogMode:            envutil.String("LOG_MODE", "dev"),
		DatabaseDriver:     envutil.String("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:        envutil.String("DATABASE_URL", "file:pedimento.db"),
		SeedPath:           envutil.String("RULEPACK_SEED_PATH", ""),
		StrictMode:         envutil.Bool("RULE_ENGINE_STRICT_MODE", false),
		TraceLimit:         envutil.Int("RULE_TRACE_LIMIT", engine.DefaultTraceLimit),
		SelectorFirstMatch: envutil.Bool("SELECTOR_FIRST_MATCH", false),
	}
}

// EngineOptions is the resolver configuration derived from the environment.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		StrictDefault:          c.StrictMode,
		TraceLimit:             c.TraceLimit,
		SelectorFirstMatchWins: c.SelectorFirstMatch,
	}
}
