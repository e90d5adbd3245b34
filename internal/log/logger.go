// SPDX-License-Identifier: MIT

// Package log provides the structured zerolog logger shared by every component.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stdout)
	Service string    // optional service name attached to every log entry
	Version string    // optional build version attached to every log entry
}

var (
	mu   sync.RWMutex
	base zerolog.Logger
)

// Configure (re)initialises the global zerolog logger. It is safe to call again
// once the configuration file has been loaded.
func Configure(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("GLA_LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	service := cfg.Service
	if service == "" {
		service = "gla"
	}

	l := zerolog.New(writer).With().
		Timestamp().
		Str(FieldService, service).
		Str(FieldVersion, cfg.Version).
		Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}

// Derive attaches arbitrary fields to a child logger using the provided builder function.
func Derive(build func(*zerolog.Context)) zerolog.Logger {
	ctx := Base().With()
	if build != nil {
		build(&ctx)
	}
	return ctx.Logger()
}

func init() {
	Configure(Config{})
}
