package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs a process-wide slog logger writing to stdout. format is
// "json" or "text".
func Init(level, format string) error {
	logLevel := new(slog.LevelVar)
	if err := setLogLevel(level, logLevel); err != nil {
		return err
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}

	var logHandler slog.Handler
	if strings.EqualFold(format, "json") {
		logHandler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}

	slog.SetDefault(slog.New(logHandler))
	return nil
}

func setLogLevel(levelStr string, levelVar *slog.LevelVar) error {
	switch strings.ToLower(levelStr) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info", "":
		levelVar.Set(slog.LevelInfo)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level: %s", levelStr)
	}
	return nil
}

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return slog.Default().With(slog.String("component", name))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
