package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Log output formats understood by NewLogger
const (
	FormatJSON = "json"
	FormatText = "text"
)

// LogLevelEnv names the environment variable consulted by GetLogLevel
const LogLevelEnv = "COURIER_LOG_LEVEL"

// NewLogger creates a structured logger for a courier component writing to
// w. The json format is meant for services; text renders with colour for
// people at a terminal
func NewLogger(
	w io.Writer, component string, level slog.Level, format string,
) *slog.Logger {
	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatText:
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h).With("component", component)
}

// ParseLogLevel parses debug, info, warn or error (case-insensitive).
// Anything else yields LevelInfo
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogLevel returns the level from the flag value, falling back to the
// COURIER_LOG_LEVEL environment variable and then to info
func GetLogLevel(flagLevel string) slog.Level {
	if flagLevel != "" {
		return ParseLogLevel(flagLevel)
	}
	if env := os.Getenv(LogLevelEnv); env != "" {
		return ParseLogLevel(env)
	}
	return slog.LevelInfo
}
