package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
)

// resolvePath makes a relative directory absolute against the working directory
func resolvePath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Abs(p)
}

// ParseLogLevel maps LOG_LEVEL onto a zap level. Empty means info.
func ParseLogLevel(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zapcore.InfoLevel, nil
	}

	switch level {
	case "debug", "info", "warn", "error":
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid LOG_LEVEL: %q", level)
	}

	return zapcore.ParseLevel(level)
}
