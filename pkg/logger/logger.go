package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

var Log = slog.New(slog.NewJSONHandler(io.Discard, nil))

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Init replaces the package logger. Format "text" switches to a human
// readable handler, anything else keeps JSON.
func Init(level string, w io.Writer, format ...string) {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(level),
	}

	if len(format) > 0 && format[0] == "text" {
		Log = slog.New(slog.NewTextHandler(w, opts))
		return
	}

	Log = slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch Level(level) {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Mode tags a record with the selection mode it was produced under.
func Mode(mode string) slog.Attr {
	return slog.String("mode", mode)
}

// Design tags a record with the design (chat) it belongs to.
func Design(id int64) slog.Attr {
	return slog.Int64("design_id", id)
}
