// Package logger provides the structured logger used across the daemon,
// CLI tools, and library packages. It is a thin wrapper around logrus so
// call sites depend on a small, stable shape instead of the logrus API
// directly.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields = logrus.Fields

// Logger wraps a configured logrus.Logger.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger builds a Logger writing JSON lines to stdout at the given
// level ("debug", "info", "warn", "error"). An unrecognized level falls
// back to "info".
func NewLogger(level string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{entry: logrus.NewEntry(l)}
}

// WithField returns a Logger with a single structured field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a Logger with the given structured fields attached.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithError returns a Logger with an "error" field set from err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *Logger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
