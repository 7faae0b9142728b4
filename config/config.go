package config

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/bsaid97/go-attribute-transfer/transfer"
)

// Config holds process-wide settings.
type Config struct {
	Port            string
	LogLevel        string
	VertexTolerance float64
	ParseWorkers    int
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	tolerance := transfer.DefaultVertexTolerance
	if v, err := strconv.ParseFloat(os.Getenv("VERTEX_TOLERANCE"), 64); err == nil && v > 0 {
		tolerance = v
	}

	workers := runtime.NumCPU()
	if n, err := strconv.Atoi(os.Getenv("PARSE_WORKERS")); err == nil && n > 0 {
		workers = n
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		VertexTolerance: tolerance,
		ParseWorkers:    workers,
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
