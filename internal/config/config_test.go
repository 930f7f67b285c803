package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"PORT", "LOG_MODE", "DATABASE_DRIVER", "DATABASE_URL", "RULEPACK_SEED_PATH", "RULE_ENGINE_STRICT_MODE", "RULE_TRACE_LIMIT", "SELECTOR_FIRST_MATCH"} {
		t.Setenv(name, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 500, cfg.TraceLimit)
	assert.False(t, cfg.StrictMode)
	assert.Empty(t, cfg.SeedPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RULE_ENGINE_STRICT_MODE", "true")
	t.Setenv("RULE_TRACE_LIMIT", "50")
	t.Setenv("SELECTOR_FIRST_MATCH", "1")
	t.Setenv("DATABASE_DRIVER", "postgres")

	opts := Load().EngineOptions()
	assert.True(t, opts.StrictDefault)
	assert.Equal(t, 50, opts.TraceLimit)
	assert.True(t, opts.SelectorFirstMatchWins)
}
