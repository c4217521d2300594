// Package logger holds the process-wide slog logger used outside Nakama and
// adapts it to runtime.Logger so the match engine logs the same way under
// both hosts.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
)

var defaultLogger *slog.Logger

// Init builds the global logger writing to stdout.
func Init(level string, json bool) {
	InitWriter(os.Stdout, level, json)
}

// InitWriter builds the global logger writing to w.
func InitWriter(w io.Writer, level string, json bool) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the global logger, initializing it at info level if needed.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("info", false)
	}
	return defaultLogger
}

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}

// Runtime wraps l as a runtime.Logger. Messages are printf-formatted and
// fields become slog attributes.
func Runtime(l *slog.Logger) runtime.Logger {
	if l == nil {
		l = Get()
	}
	return &runtimeLogger{l: l, fields: map[string]interface{}{}}
}

type runtimeLogger struct {
	l      *slog.Logger
	fields map[string]interface{}
}

func (r *runtimeLogger) Debug(format string, v ...interface{}) {
	r.l.Debug(fmt.Sprintf(format, v...))
}

func (r *runtimeLogger) Info(format string, v ...interface{}) {
	r.l.Info(fmt.Sprintf(format, v...))
}

func (r *runtimeLogger) Warn(format string, v ...interface{}) {
	r.l.Warn(fmt.Sprintf(format, v...))
}

func (r *runtimeLogger) Error(format string, v ...interface{}) {
	r.l.Error(fmt.Sprintf(format, v...))
}

func (r *runtimeLogger) WithField(key string, v interface{}) runtime.Logger {
	return r.WithFields(map[string]interface{}{key: v})
}

func (r *runtimeLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		merged[k] = v
		args = append(args, k, v)
	}
	return &runtimeLogger{l: r.l.With(args...), fields: merged}
}

func (r *runtimeLogger) Fields() map[string]interface{} {
	return r.fields
}
