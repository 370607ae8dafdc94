// Package cliutil holds the small pieces of CLI plumbing every
// subcommand package needs (the shared logger constructor), kept out
// of cmd itself so subcommand packages can import it without a cycle
// back through cmd.
package cliutil

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/yue/binsizer/internal/applog"
)

// NewLogger builds the process logger from the persistent --log-file
// and --log-level flags (bound to viper in cmd/root.go).
func NewLogger() (*slog.Logger, io.Closer, error) {
	return applog.New(applog.Options{
		Level:   ParseLevel(viper.GetString("log_level")),
		LogFile: viper.GetString("log_file"),
	})
}

// ParseLevel maps a --log-level string to its slog.Level, defaulting
// to Info for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
