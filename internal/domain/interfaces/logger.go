// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

import (
	"fmt"
	"io"
	"sync"
)

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs debug-level messages
	Debug(msg string, fields ...Field)

	// Info logs informational messages
	Info(msg string, fields ...Field)

	// Warn logs warning messages
	Warn(msg string, fields ...Field)

	// Error logs error messages
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (convenience function)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// NoOpLogger is a logger that does nothing (useful for tests)
type NoOpLogger struct{}

// Debug does nothing (no-op implementation)
func (n *NoOpLogger) Debug(_ string, _ ...Field) {}

// Info does nothing (no-op implementation)
func (n *NoOpLogger) Info(_ string, _ ...Field) {}

// Warn does nothing (no-op implementation)
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}

// Error does nothing (no-op implementation)
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// WriterLogger writes line-oriented log output to an io.Writer, optionally
// prefixed with a job instance name so interleaved matrix output stays
// attributable. Safe for concurrent use.
type WriterLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	prefix string
}

// NewWriterLogger creates a logger writing to out
func NewWriterLogger(out io.Writer) *WriterLogger {
	return &WriterLogger{mu: &sync.Mutex{}, out: out}
}

// WithPrefix returns a logger that prefixes every line, sharing the parent's
// writer and lock
func (w *WriterLogger) WithPrefix(prefix string) *WriterLogger {
	return &WriterLogger{mu: w.mu, out: w.out, prefix: prefix}
}

// Debug logs debug-level messages
func (w *WriterLogger) Debug(msg string, fields ...Field) { w.log("DEBUG", msg, fields) }

// Info logs informational messages
func (w *WriterLogger) Info(msg string, fields ...Field) { w.log("INFO", msg, fields) }

// Warn logs warning messages
func (w *WriterLogger) Warn(msg string, fields ...Field) { w.log("WARN", msg, fields) }

// Error logs error messages
func (w *WriterLogger) Error(msg string, fields ...Field) { w.log("ERROR", msg, fields) }

func (w *WriterLogger) log(level, msg string, fields []Field) {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := level + ": " + msg
	if w.prefix != "" {
		line = "[" + w.prefix + "] " + line
	}
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	fmt.Fprintln(w.out, line)
}
