// Package logging configures log/slog for the service and hands out named
// per-module loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

// LoggerKey is the attribute that carries the logger name.
const LoggerKey = "logger"

//nolint:gochecknoglobals
var logLevelStrToLevel = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// AppName is added to all log entries.
	AppName string

	// Output is "stdout", "stderr", "discard" or a file path.
	Output string `env:"OUTPUT" default:"stderr"`

	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string `env:"LEVEL" default:"info"`

	// Filter holds per-module overrides ("svc.authsvc:debug,infra:warn").
	Filter string `env:"FILTER" default:""`

	// JSON switches from console to JSON output.
	JSON bool `env:"JSON" default:"false"`

	OutputHandle io.Writer
}

//nolint:gochecknoglobals
var (
	Group = slog.Group

	config     LoggerConfig
	configLock sync.RWMutex
)

// Configure sets the global logging configuration. Loggers obtained before the
// call keep their old settings, so it runs first thing in main.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) error {
	if err := configure(cfg, appName); err != nil {
		return err
	}

	GetLogger("infra.logging").DebugContext(ctx, "logging configured", Group("config",
		"app", appName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"json", cfg.JSON,
	))

	return nil
}

func configure(cfg LoggerConfig, appName string) error {
	configLock.Lock()
	defer configLock.Unlock()

	cfg.AppName = appName

	if cfg.OutputHandle == nil {
		switch cfg.Output {
		case "", "discard":
			cfg.OutputHandle = io.Discard
		case "stdout":
			cfg.OutputHandle = os.Stdout
		case "stderr":
			cfg.OutputHandle = os.Stderr
		default:
			file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}

			cfg.OutputHandle = file
		}
	}

	config = cfg

	slog.SetLogLoggerLevel(ParseLevel(cfg.Level, LevelInfo))

	return nil
}

// GetLogLogger adapts logger for code that wants a *log.Logger, such as http.Server.ErrorLog.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.With("stdlog", true).Handler(), level)
}

// GetLogger returns a logger named after the module it serves, e.g. "svc.postsvc.post_service".
func GetLogger(name string) Logger {
	configLock.RLock()
	cfg := config
	configLock.RUnlock()

	if cfg.OutputHandle == nil || cfg.OutputHandle == io.Discard {
		return NewNopLogger()
	}

	level := ParseLevel(cfg.Level, LevelInfo)

	var handler slog.Handler

	if cfg.JSON {
		//nolint:exhaustruct
		handler = slog.NewJSONHandler(cfg.OutputHandle, &slog.HandlerOptions{
			AddSource: true,
			Level:     NewModuleLevel(name, level, ParseFilter(cfg.Filter)),
		})
	} else {
		handler = NewConsoleHandler(cfg.OutputHandle, NewModuleLevel(name, level, ParseFilter(cfg.Filter)))
	}

	logger := slog.New(NewContextHandler(handler))

	if cfg.AppName != "" {
		logger = logger.With("app", cfg.AppName)
	}

	return logger.With(LoggerKey, name)
}

// ParseFilter reads a "module:level,module:level" list. Malformed entries are skipped.
func ParseFilter(filter string) map[string]Level {
	levels := make(map[string]Level)

	for _, entry := range strings.Split(filter, ",") {
		module, levelStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || module == "" {
			continue
		}

		levels[module] = ParseLevel(levelStr, LevelDebug)
	}

	return levels
}

// ParseLevel maps a level name to its slog level, returning fallback for unknown names.
func ParseLevel(levelStr string, fallback Level) Level {
	level, ok := logLevelStrToLevel[strings.ToLower(strings.TrimSpace(levelStr))]
	if !ok {
		return fallback
	}

	return level
}

// NewModuleLevel resolves the minimum level for module: the longest dotted prefix
// with an override in filter wins, otherwise base applies.
func NewModuleLevel(module string, base Level, filter map[string]Level) Level {
	parts := strings.Split(module, ".")

	for i := len(parts); i > 0; i-- {
		if level, ok := filter[strings.Join(parts[:i], ".")]; ok {
			return level
		}
	}

	return base
}
