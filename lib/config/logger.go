package config

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Loggers lists the components whose level InitLoggers sets
var Loggers = []string{"odm", "geo", "cache", "docstore", "config", "sessions", "helpdesk", "cli"}

// sink is the writer shared by all component loggers; lines are written whole
var sink = struct {
	mu sync.Mutex
	w  io.Writer
}{w: os.Stderr}

// SetLogOutput redirects all component loggers, e.g. into a buffer in tests
func SetLogOutput(w io.Writer) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.w = w
}

// componentLogger writes "<time> LEVEL | component | message" lines.
// It implements dragonboat's logger.ILogger so the packages only depend on logger.GetLogger.
type componentLogger struct {
	component string
	level     atomic.Int32
}

func (l *componentLogger) SetLevel(level logger.LogLevel) { l.level.Store(int32(level)) }

func (l *componentLogger) Debugf(format string, args ...interface{}) {
	l.emit(logger.DEBUG, format, args)
}

func (l *componentLogger) Infof(format string, args ...interface{}) {
	l.emit(logger.INFO, format, args)
}

func (l *componentLogger) Warningf(format string, args ...interface{}) {
	l.emit(logger.WARNING, format, args)
}

func (l *componentLogger) Errorf(format string, args ...interface{}) {
	l.emit(logger.ERROR, format, args)
}

// Panicf logs regardless of the level and panics
func (l *componentLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, msg)
	panic(msg)
}

func (l *componentLogger) emit(level logger.LogLevel, format string, args []interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *componentLogger) write(level logger.LogLevel, msg string) {
	line := fmt.Sprintf("%s %-5s | %-8s | %s\n",
		time.Now().UTC().Format(time.RFC3339), levelName(level), l.component, strings.TrimRight(msg, "\n"))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	_, _ = io.WriteString(sink.w, line)
}

func levelName(level logger.LogLevel) string {
	switch level {
	case logger.DEBUG:
		return "DEBUG"
	case logger.INFO:
		return "INFO"
	case logger.WARNING:
		return "WARN"
	case logger.ERROR:
		return "ERROR"
	default:
		return "CRIT"
	}
}

// CreateLogger is the logger.Factory installed by InitLoggers. New loggers start at INFO.
func CreateLogger(component string) logger.ILogger {
	l := &componentLogger{component: component}
	l.SetLevel(logger.INFO)
	return l
}

// ParseLogLevel converts a level name (debug, info, warn, error) to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", level)
	}
}

// InitLoggers installs CreateLogger as the logger factory and sets the level of all components
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range Loggers {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
