package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFormat = "2006-01-02 15:04:05"

// Logs go to stderr: stdout carries payload bytes for `anysock connect`
// and `anysock listen`.
var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, charmlog.InfoLevel)
)

// Options selects where the process logger writes.
type Options struct {
	// Path is an optional log file, rotated by size. Empty means stderr only.
	Path string
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
}

func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
	})
}

// Init replaces the process logger. With a Path it writes to stderr and a
// rotating file.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    25, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, rotator)
	}

	l := newLogger(w, level)

	mu.Lock()
	logger = l
	mu.Unlock()

	if opts.Path != "" {
		l.Debug("logging initialized", "path", opts.Path)
	}
	return nil
}

// SetOutput redirects the process logger, keeping its level. Tests use it to
// capture log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, logger.GetLevel())
}

// ParseLevel maps a level name to a charm log level.
func ParseLevel(s string) (charmlog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return charmlog.InfoLevel, nil
	}
	level, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return charmlog.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func SetLevel(level charmlog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetLevel(level)
}

func L() *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
