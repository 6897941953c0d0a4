package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"chsld-scraper/internal/config"
)

// Logger is a thin key/value wrapper around slog shared by every stage.
type Logger struct {
	log    *slog.Logger
	closer io.Closer
}

// NewLogger writes to stdout and, when cfg.LogPath is set, to a rotating log file.
func NewLogger(cfg config.ObservabilityConfig) *Logger {
	var w io.Writer = os.Stdout
	var closer io.Closer

	if cfg.LogPath != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		}
		w = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}

	l := New(w, cfg.LogLevel)
	l.closer = closer
	return l
}

// New builds a Logger on an arbitrary writer.
func New(w io.Writer, level string) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{log: slog.New(handler)}
}

// Nop discards everything.
func Nop() *Logger {
	return New(io.Discard, "error")
}

func parseLevel(level string) slog.Level {
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

func (l *Logger) Debug(msg string, fields ...any) {
	l.log.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.log.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.log.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...any) {
	l.log.Error(msg, fields...)
}

// Close flushes the rotating file, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
