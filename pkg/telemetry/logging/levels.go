package logging

import (
	"fmt"
	"log/slog"

	"mercator-hq/vigil/pkg/safety"
)

// SafetyLevelKey is the attribute carrying a record's safety level.
const SafetyLevelKey = "safety_level"

// LevelEmergency sits above slog.LevelError.
const LevelEmergency = slog.LevelError + 4

// LevelFor maps a safety level onto a slog level.
func LevelFor(l safety.Level) slog.Level {
	switch l {
	case safety.LevelEmergency:
		return LevelEmergency
	case safety.LevelCritical:
		return slog.LevelError
	case safety.LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// replaceLevel renders LevelEmergency as "EMERGENCY" instead of "ERROR+4".
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelEmergency {
		a.Value = slog.StringValue("EMERGENCY")
	}
	return a
}

// parseLevel parses a log level string into slog.Level.
func parseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}
