package log

import (
	"io"
	"os"
	"sync"

	"github.com/kataras/golog"
)

// HTTPLogger is the name of the logger handed to network clients.
const HTTPLogger = "http"

// Options configures Setup.
type Options struct {
	// Output defaults to os.Stderr.
	Output io.Writer
	// Level is a level name understood by ParseLevel. Empty means info.
	Level string
	// Levels overrides the level of named loggers. HTTPLogger defaults to warn.
	Levels map[string]string
	// Prefix defaults to "[autonix] ".
	Prefix string
	// TimeFormat is passed to golog. Empty keeps golog's default.
	TimeFormat string
}

// Handle owns one logging sink and the named loggers derived from it.
type Handle struct {
	mu     sync.Mutex
	opts   Options
	root   *GologLogger
	levels map[string]LogLevel
	named  map[string]*GologLogger
}

// Setup builds a new sink from opts. It does not touch the package default.
func Setup(opts Options) *Handle {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Prefix == "" {
		opts.Prefix = "[autonix] "
	}

	// Unknown names fall back to info.
	level, _ := ParseLevel(opts.Level)

	h := &Handle{
		opts:   opts,
		levels: map[string]LogLevel{HTTPLogger: LogLevelWarn},
		named:  make(map[string]*GologLogger),
	}
	for name, lvl := range opts.Levels {
		if parsed, err := ParseLevel(lvl); err == nil {
			h.levels[name] = parsed
		}
	}
	h.root = h.newLogger(opts.Prefix, level)
	return h
}

func (h *Handle) newLogger(prefix string, level LogLevel) *GologLogger {
	g := golog.New()
	g.SetOutput(h.opts.Output)
	g.SetPrefix(prefix)
	if h.opts.TimeFormat != "" {
		g.SetTimeFormat(h.opts.TimeFormat)
	}
	l := NewGologLogger(g)
	l.SetLevel(level)
	return l
}

// Logger returns the application logger.
func (h *Handle) Logger() Logger {
	return h.root
}

// HTTP returns the network client logger.
func (h *Handle) HTTP() Logger {
	return h.Named(HTTPLogger)
}

// Named returns the logger registered under name, creating it on first use.
// Its level is the override from Options.Levels, or the root level.
func (h *Handle) Named(name string) *GologLogger {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.named[name]; ok {
		return l
	}
	level, ok := h.levels[name]
	if !ok {
		level = h.root.GetLevel()
	}
	l := h.newLogger(h.opts.Prefix+"["+name+"] ", level)
	h.named[name] = l
	return l
}

// SetLevel changes the level of the root logger, or of a named one.
func (h *Handle) SetLevel(name string, level LogLevel) {
	if name == "" {
		h.root.SetLevel(level)
		return
	}
	h.mu.Lock()
	h.levels[name] = level
	l, ok := h.named[name]
	h.mu.Unlock()
	if ok {
		l.SetLevel(level)
	}
}

var (
	initOnce   sync.Once
	initHandle *Handle
)

// Init runs Setup on the first call and installs the handle as the package
// default logger. Later calls ignore opts and return the same handle.
func Init(opts Options) *Handle {
	initOnce.Do(func() {
		initHandle = Setup(opts)
		SetDefaultLogger(initHandle.Logger())
	})
	return initHandle
}
