// Package debug provides conditional debug logging for tv.
//
// Debug logging is enabled by setting the TV_DEBUG environment variable:
//
//	TV_DEBUG=1 tv items.json
//
// Output goes to stderr, or to the file named by TV_DEBUG_FILE. The TUI owns
// the terminal, so interactive sessions should always set TV_DEBUG_FILE.
// When disabled (default), the logging functions return immediately.
package debug

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	enabled bool
	logger  = newLogger(io.Discard)
	logFile *os.File
)

func init() {
	if os.Getenv("TV_DEBUG") == "" {
		return
	}
	if path := os.Getenv("TV_DEBUG_FILE"); path != "" {
		if err := SetFile(path); err == nil {
			return
		}
	}
	SetOutput(os.Stderr)
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	return l
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled turns logging on (to stderr unless an output was set) or off.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger.Out == io.Discard {
		logger.SetOutput(os.Stderr)
	}
}

// SetOutput enables logging to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
	enabled = true
}

// SetFile enables logging appended to path.
func SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	mu.Lock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	mu.Unlock()
	SetOutput(f)
	return nil
}

// Close releases the log file, if any, and disables logging.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logger.SetOutput(io.Discard)
	enabled = false
}

// Log writes a debug message using printf-style formatting.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	logger.Debugf(format, args...)
}

// Warn writes a warning from a best-effort operation.
func Warn(format string, args ...any) {
	if !Enabled() {
		return
	}
	logger.Warnf(format, args...)
}

// LogTiming writes a timing message.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	logger.WithFields(logrus.Fields{"op": name, "took": d}).Debug("timing")
}

// WithFields returns an entry carrying structured fields. The entry writes
// nowhere while logging is disabled.
func WithFields(fields map[string]any) *logrus.Entry {
	if !Enabled() {
		return logrus.NewEntry(newLogger(io.Discard))
	}
	return logger.WithFields(logrus.Fields(fields))
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("AddNodes")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	logger.Debugf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Debugf("<- %s (%v)", name, time.Since(start))
	}
}
