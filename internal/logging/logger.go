// Package logging configures the zerolog logger used across Jarvis.
// It supports a console sink, an optional append-only file sink for
// offline troubleshooting, and level parsing from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config configures the logger behavior.
type Config struct {
	Level   string // debug, info, warn, error
	File    string // Optional file path for persistent logs
	Console bool   // Write to stderr
	Colored bool   // Colorize console output

	ConsoleOut io.Writer // Console destination, default os.Stderr
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Console: true,
		Colored: true,
	}
}

// VerboseConfig returns a configuration for verbose troubleshooting.
func VerboseConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// ParseLevel parses a string into a zerolog level. Unknown values map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger writing to the sinks described by cfg. The returned
// closer releases the log file, if one was opened.
func New(cfg *Config) (zerolog.Logger, io.Closer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var writers []io.Writer
	if cfg.Console {
		out := cfg.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !cfg.Colored,
			TimeFormat: "15:04:05.000",
		})
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		// File output stays plain text so it greps cleanly.
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        f,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		})
		closer = f
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return logger, closer, nil
}

// Setup installs the logger described by cfg as the process-wide zerolog
// logger, used by every package through github.com/rs/zerolog/log. When the
// log file cannot be opened the console sink is still installed and the
// file error is returned.
func Setup(cfg *Config) (io.Closer, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		consoleOnly := *cfg
		consoleOnly.File = ""
		logger, closer, _ = New(&consoleOnly)
	}

	zerolog.SetGlobalLevel(ParseLevel(cfgLevel(cfg)))
	zlog.Logger = logger
	zerolog.DefaultContextLogger = &zlog.Logger
	return closer, err
}

func cfgLevel(cfg *Config) string {
	if cfg == nil {
		return DefaultConfig().Level
	}
	return cfg.Level
}

// openLogFile opens path for appending, creating parent directories.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
