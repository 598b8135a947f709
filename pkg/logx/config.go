package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format represents the output format
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config holds the logger configuration
type Config struct {
	Level           Level
	Format          Format
	EnableColors    bool
	EnableCaller    bool
	EnableTimestamp bool
	TimeFormat      string
	Output          io.Writer
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:           LevelInfo,
		Format:          FormatConsole,
		EnableColors:    true,
		EnableTimestamp: true,
		TimeFormat:      time.RFC3339,
		Output:          os.Stdout,
	}
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR and LOG_CALLER.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		config.Format = FormatJSON
	}
	if color := os.Getenv("LOG_COLOR"); color != "" {
		config.EnableColors = isTrue(color)
	}
	if caller := os.Getenv("LOG_CALLER"); caller != "" {
		config.EnableCaller = isTrue(caller)
	}

	return config
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
