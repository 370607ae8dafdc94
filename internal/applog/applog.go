// Package applog wires up the process-wide structured logger.
//
// It fans out to a colorized stderr handler and, optionally, a JSON file
// handler, using github.com/samber/slog-multi the way it is meant to be
// used (the dependency ships in go.mod but nothing in the emulator ever
// called it).
package applog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Level colors, following the palette style of the teacher's debugger
// (cmd/cpu/debug.go): cyan for info, yellow for warn, red/bold for error.
var (
	colorDebug = color.New(color.FgHiBlack)
	colorInfo  = color.New(color.FgCyan)
	colorWarn  = color.New(color.FgYellow, color.Bold)
	colorError = color.New(color.FgRed, color.Bold)
)

// Options configures the logger returned by New.
type Options struct {
	// Level is the minimum level logged to stderr.
	Level slog.Level
	// LogFile, if non-empty, receives a JSON-formatted copy of every
	// record regardless of Level (always at LevelDebug and up).
	LogFile string
}

// New builds the process-wide logger per Options. The returned io.Closer
// must be closed (flushes and closes LogFile, if any) before exit.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	stderrHandler := &colorHandler{out: os.Stderr, level: opts.Level}

	handlers := []slog.Handler{stderrHandler}
	var closer io.Closer = nopCloser{}

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	return logger, closer, nil
}

// colorHandler is a minimal slog.Handler that renders level + message
// with the palette above, good enough for a CLI tool's own diagnostics
// (not meant to compete with a general-purpose logging library's text
// handler - kept deliberately small).
type colorHandler struct {
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	c := colorForLevel(r.Level)
	line := c.Sprintf("%-5s", r.Level.String())
	msg := r.Message
	r.Attrs(func(a slog.Attr) bool {
		msg += " " + a.Key + "=" + a.Value.String()
		return true
	})
	for _, a := range h.attrs {
		msg += " " + a.Key + "=" + a.Value.String()
	}
	_, err := io.WriteString(h.out, line+" "+msg+"\n")
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *colorHandler) WithGroup(_ string) slog.Handler { return h }

func colorForLevel(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}
