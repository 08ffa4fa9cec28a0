// Package log provides structured logging utilities.
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
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
}

var (
	mu         sync.RWMutex
	configured bool
	base       zerolog.Logger
)

// Configure initialises the global zerolog logger. Only the first call wins
// unless Reset is used in between.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if configured {
		return
	}
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}

	service := cfg.Service
	if service == "" {
		service = "dabstract"
	}

	base = zerolog.New(writer).Level(level).With().
		Timestamp().
		Str(FieldService, service).
		Logger()
	configured = true
}

// Reset drops the configured logger so the next Configure call applies.
// Tests use it to capture output.
func Reset() {
	mu.Lock()
	configured = false
	mu.Unlock()
}

func logger() zerolog.Logger {
	mu.RLock()
	if configured {
		defer mu.RUnlock()
		return base
	}
	mu.RUnlock()
	Configure(Config{})
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}
