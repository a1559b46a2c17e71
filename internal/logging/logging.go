// Package logging provides structured logging via log/slog, with rotation
// through lumberjack when configured for file output. Grounded on the
// teacher's pkg/logger package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Level      string // debug|info|warn|error
	Format     string // json|text
	Output     string // stdout|file
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// execKey is the context key under which the active execution id (if any)
// is stored so the handler can attach an [EXEC:<id>] tag to log lines
// (spec §4.9/§5).
type execKeyType struct{}

var execKey execKeyType

// WithExecutionID returns a context tagged with the given execution id.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, execKey, id)
}

// ExecutionID extracts the execution id tag from a context, if any.
func ExecutionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(execKey).(string)
	return v, ok
}

// New builds a slog.Logger. When an execution id is present on the log
// record's context, the line carries an "exec_tag" attribute whose value
// is "[EXEC:<id>]", which is what internal/logfanout greps for when
// tailing. The tag is an attribute; the message itself is not prefixed.
func New(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)
	writer := setupWriter(cfg)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		base = slog.NewJSONHandler(writer, opts)
	} else {
		base = slog.NewTextHandler(writer, opts)
	}

	return slog.New(&execTagHandler{inner: base})
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func setupWriter(cfg Config) io.Writer {
	if strings.EqualFold(cfg.Output, "file") {
		if cfg.Filename == "" {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		}
	}
	return os.Stdout
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// execTagHandler wraps a slog.Handler and injects an "exec_tag" attribute
// holding "[EXEC:<id>]" (the substring the fanout greps for, in text and
// JSON lines alike) whenever the record's context carries an execution id.
type execTagHandler struct {
	inner slog.Handler
}

func (h *execTagHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *execTagHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ExecutionID(ctx); ok {
		r.AddAttrs(slog.String("exec_tag", "[EXEC:"+id+"]"))
	}
	return h.inner.Handle(ctx, r)
}

func (h *execTagHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &execTagHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *execTagHandler) WithGroup(name string) slog.Handler {
	return &execTagHandler{inner: h.inner.WithGroup(name)}
}
