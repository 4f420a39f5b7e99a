package log

import (
	"sync/atomic"

	"github.com/kataras/golog"
)

// GologLogger adapts a *golog.Logger to Logger. The level is checked before
// formatting, so filtered calls cost no allocation.
type GologLogger struct {
	logger *golog.Logger
	level  atomic.Int32
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps logger at LogLevelInfo.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	l := &GologLogger{logger: logger}
	l.level.Store(int32(LogLevelInfo))
	return l
}

func (l *GologLogger) enabled(level LogLevel) bool {
	return LogLevel(l.level.Load()) <= level
}

func (l *GologLogger) Debug(format string, v ...any) {
	if l.enabled(LogLevelDebug) {
		l.logger.Debugf(format, v...)
	}
}

func (l *GologLogger) Info(format string, v ...any) {
	if l.enabled(LogLevelInfo) {
		l.logger.Infof(format, v...)
	}
}

func (l *GologLogger) Warn(format string, v ...any) {
	if l.enabled(LogLevelWarn) {
		l.logger.Warnf(format, v...)
	}
}

func (l *GologLogger) Error(format string, v ...any) {
	if l.enabled(LogLevelError) {
		l.logger.Errorf(format, v...)
	}
}

// SetLevel sets the level on the wrapper and on the golog logger.
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
	l.logger.SetLevel(gologLevel(level))
}

// GetLevel returns the current level.
func (l *GologLogger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// Golog exposes the wrapped logger.
func (l *GologLogger) Golog() *golog.Logger {
	return l.logger
}

func gologLevel(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "debug"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelNone:
		return "disable"
	}
	return "info"
}
