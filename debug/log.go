// Package debug is the process-wide logger.
//
// Output goes to stderr until Enable redirects it to a file. The realtime
// process callback must never call into this package.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu       sync.Mutex
	file     *os.File
	counters = make(map[string]int)

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
)

// DefaultPath returns ~/.config/pacemaker/debug.log
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pacemaker", "debug.log"), nil
}

// Enable writes the log to path (DefaultPath if empty), truncating it,
// and lowers the level to debug.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("debug log: %w", err)
	}

	if file != nil {
		file.Close()
	}
	file = f
	logger.SetOutput(f)
	logger.SetLevel(log.DebugLevel)
	logger.Debug("=== Debug logging started ===")
	return nil
}

// Disable closes the log file and goes back to stderr.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	logger.SetOutput(os.Stderr)
}

// SetOutput sends the log to w until the next Enable or Disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetLevel sets the minimum level by name (debug, info, warn, error, fatal).
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// Log writes a debug message under a category prefix.
func Log(category, msg string, keyvals ...any) {
	logger.WithPrefix(category).Debug(msg, keyvals...)
}

func Info(category, msg string, keyvals ...any) {
	logger.WithPrefix(category).Info(msg, keyvals...)
}

func Warn(category, msg string, keyvals ...any) {
	logger.WithPrefix(category).Warn(msg, keyvals...)
}

func Error(category, msg string, keyvals ...any) {
	logger.WithPrefix(category).Error(msg, keyvals...)
}

// LogEvery warns only every n calls for the same category and message.
// Use for high-frequency events such as a full transport.
func LogEvery(n int, category, msg string, keyvals ...any) {
	mu.Lock()
	key := category + "\x00" + msg
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if n <= 1 || count%n == 1 {
		Warn(category, msg, append(keyvals, "every", n, "count", count)...)
	}
}
