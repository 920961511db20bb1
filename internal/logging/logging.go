// Package logging builds the daemon's slog logger from the [log] section.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Formats accepted in Config.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the [log] section
type Config struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
	// Source adds the file and line of the call site
	Source bool `toml:"source" mapstructure:"source"`
}

// DefaultConfig logs text at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatText}
}

// ParseLevel maps a level name to a slog level. "warning" and "trace" are
// accepted for warn and debug.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// Validate checks the level and format names.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (valid options: text, json)", c.Format)
	}
}

// New returns a logger writing to w as configured.
func New(cfg Config, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.Source}

	var h slog.Handler
	switch cfg.Format {
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(h), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
