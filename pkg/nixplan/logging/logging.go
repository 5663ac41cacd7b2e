// Package logging provides the shared logging setup for nixplan. Log
// output always goes to a file: while the TUI owns the terminal nothing
// may write to stderr, and a botched partition plan is exactly the kind of
// thing users attach logs for.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("lsblk").Info("enumerated devices", "disks", n)
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Config configures the logging system.
type Config struct {
	// Level is the log level: debug, info, warn or error.
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string
}

var (
	mu      sync.Mutex
	file    io.WriteCloser
	root    *log.Logger
	loggers = make(map[string]*log.Logger)
)

// DefaultLogPath returns the log file location under the XDG state dir.
func DefaultLogPath() string {
	path, err := xdg.StateFile(filepath.Join("nixplan", "nixplan.log"))
	if err != nil {
		return filepath.Join(os.TempDir(), "nixplan.log")
	}
	return path
}

// Init opens the log file and installs the root logger. Calling Init again
// replaces the previous configuration.
func Init(cfg Config) error {
	lvl, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		_ = file.Close()
	}
	file = f
	root = log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
	loggers = make(map[string]*log.Logger)
	return nil
}

// Get returns the logger for a component, creating it on first use. Before
// Init, component loggers discard their output so library code can log
// unconditionally.
func Get(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	base := root
	if base == nil {
		base = log.New(io.Discard)
	}
	l := base.With("component", component)
	loggers[component] = l
	return l
}

// Close flushes and closes the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	loggers = make(map[string]*log.Logger)
	root = nil
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}
