package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kataras/golog"
)

// LogLevel is a logging severity. Higher values log less.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	// LogLevelNone disables all output.
	LogLevelNone
)

// Logger is the printf-style logger every component accepts.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}

func (NoOpLogger) Info(string, ...any) {}

func (NoOpLogger) Warn(string, ...any) {}

func (NoOpLogger) Error(string, ...any) {}

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLevel maps a level name such as "info" or "WARN" to a LogLevel.
// "warning" is accepted as an alias of "warn", "off" and "disable" as "none".
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none", "off", "disable":
		return LogLevelNone, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = newStderrLogger()
)

func newStderrLogger() Logger {
	g := golog.New()
	g.SetOutput(os.Stderr)
	g.SetPrefix("[autonix] ")
	l := NewGologLogger(g)
	l.SetLevel(LogLevelInfo)
	return l
}

// SetDefaultLogger replaces the package default. Nil installs a NoOpLogger.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetDefaultLogger returns the package default, an INFO logger on stderr
// until Init or SetDefaultLogger replaces it.
func GetDefaultLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Debug(format string, v ...any) { GetDefaultLogger().Debug(format, v...) }

func Info(format string, v ...any) { GetDefaultLogger().Info(format, v...) }

func Warn(format string, v ...any) { GetDefaultLogger().Warn(format, v...) }

func Error(format string, v ...any) { GetDefaultLogger().Error(format, v...) }
