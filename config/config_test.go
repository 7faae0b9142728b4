package config

import (
	"log/slog"
	"runtime"
	"testing"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("VERTEX_TOLERANCE", "")
	t.Setenv("PARSE_WORKERS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, transfer.DefaultVertexTolerance, cfg.VertexTolerance)
	assert.Equal(t, runtime.NumCPU(), cfg.ParseWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("VERTEX_TOLERANCE", "0.5")
	t.Setenv("PARSE_WORKERS", "3")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 0.5, cfg.VertexTolerance)
	assert.Equal(t, 3, cfg.ParseWorkers)
}

func TestLoad_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("VERTEX_TOLERANCE", "-1")
	t.Setenv("PARSE_WORKERS", "many")

	cfg := Load()
	assert.Equal(t, transfer.DefaultVertexTolerance, cfg.VertexTolerance)
	assert.Equal(t, runtime.NumCPU(), cfg.ParseWorkers)
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
	} {
		assert.Equal(t, want, (&Config{LogLevel: level}).SlogLevel(), level)
	}
}
