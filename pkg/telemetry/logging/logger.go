package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/vigil/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in key=value text format.
	FormatText LogFormat = "text"
)

// Config contains configuration for a Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// RedactPII enables masking of personal data and credentials
	RedactPII bool

	// RedactPatterns contains additional redaction patterns
	RedactPatterns []config.RedactPattern

	// Writer is the output writer (defaults to os.Stdout)
	Writer io.Writer

	// SecurityWriter receives CRITICAL and EMERGENCY entries in JSON.
	// Nil disables the security log.
	SecurityWriter io.Writer
}

// Logger owns a configured *slog.Logger and any files it writes to.
type Logger struct {
	slog    *slog.Logger
	level   *slog.LevelVar
	closers []io.Closer
}

// New creates a Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	opts := &slog.HandlerOptions{
		Level:       levelVar,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	if cfg.SecurityWriter != nil {
		// The security log records every escalated entry regardless of the
		// primary level.
		security := slog.NewJSONHandler(cfg.SecurityWriter, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			AddSource:   cfg.AddSource,
			ReplaceAttr: replaceLevel,
		})
		handler = NewSecurityHandler(handler, security)
	}

	handler = &contextHandler{next: handler}

	if cfg.RedactPII {
		handler = &redactingHandler{next: handler, redactor: NewRedactor(cfg.RedactPatterns)}
	}

	return &Logger{slog: slog.New(handler), level: levelVar}, nil
}

// NewFromConfig creates a Logger from the telemetry configuration, opening
// the security log file for append when one is configured.
func NewFromConfig(cfg config.LoggingConfig, w io.Writer) (*Logger, error) {
	lc := Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactPII:      cfg.RedactPII,
		RedactPatterns: cfg.RedactPatterns,
		Writer:         w,
	}

	var f *os.File
	if cfg.SecurityOutput != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SecurityOutput), 0755); err != nil {
			return nil, fmt.Errorf("failed to create security log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(cfg.SecurityOutput, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open security log: %w", err)
		}
		lc.SecurityWriter = f
	}

	l, err := New(lc)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, err
	}
	if f != nil {
		l.closers = append(l.closers, f)
	}
	return l, nil
}

// Slog returns the configured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// SetLevel changes the minimum level of the primary output. The security
// log is unaffected.
func (l *Logger) SetLevel(levelStr string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	l.level.Set(level)
	return nil
}

// Close closes any files opened by the logger.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// parseFormat parses a log format string into LogFormat.
func parseFormat(formatStr string) (LogFormat, error) {
	switch formatStr {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT", "console":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
