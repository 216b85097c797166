package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// setupLogging opens {home}/logs/daemon.{YYYY-MM-DD}.log and installs a
// slog handler writing to it plus stderr. AUTODEV_LOG wins over the
// configured level.
func setupLogging(home, configuredLevel string) (func(), error) {
	logDir := filepath.Join(home, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("daemon.%s.log", time.Now().UTC().Format("2006-01-02")))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening daemon log file: %w", err)
	}

	level := parseLevel(configuredLevel)
	if override := os.Getenv("AUTODEV_LOG"); override != "" {
		level = parseLevel(override)
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return func() { _ = logFile.Close() }, nil
}

func parseLevel(s string) slog.Level {
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
