package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentLink   Component = "link"
	ComponentRole   Component = "role"
	ComponentHalf   Component = "half"
	ComponentSerial Component = "serial"
	ComponentSim    Component = "sim"
	ComponentCLI    Component = "cli"
)

// LogFormat specifies the output format for logging.
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

var (
	// DefaultLogger is the logger every component writes to.
	DefaultLogger *slog.Logger

	logLevel            = new(slog.LevelVar)
	logOutput io.Writer = os.Stderr
	logMutex  sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum level for all components.
func SetLogLevel(level slog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.Set(level)
}

// GetLogLevel returns the current minimum level.
func GetLogLevel() slog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel.Level()
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// ParseLogFormat maps text and json to a LogFormat.
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	}
	return LogFormatText, fmt.Errorf("unknown log format %q", s)
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogOutput redirects the default logger, keeping the given format.
func SetLogOutput(w io.Writer, format LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logOutput = w
	opts := &slog.HandlerOptions{Level: logLevel}
	switch format {
	case LogFormatJSON:
		DefaultLogger = slog.New(slog.NewJSONHandler(w, opts))
	default:
		DefaultLogger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// SetLogFormat switches the default logger format on the current output.
func SetLogFormat(format LogFormat) {
	logMutex.RLock()
	w := logOutput
	logMutex.RUnlock()
	SetLogOutput(w, format)
}

func logger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logger().Debug(msg, append([]any{"component", string(component)}, args...)...)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logger().Info(msg, append([]any{"component", string(component)}, args...)...)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logger().Warn(msg, append([]any{"component", string(component)}, args...)...)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logger().Error(msg, append([]any{"component", string(component)}, args...)...)
}
