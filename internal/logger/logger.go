// Package logger provides leveled logging with an optional file sink.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes leveled log lines to stderr and optionally to a file.
// Stdout is left to command output. It is safe for concurrent use.
type Logger struct {
	Verbose bool

	mu      sync.Mutex
	out     io.Writer
	fileLog *os.File
}

// New creates a Logger writing to stderr.
func New(verbose bool) *Logger {
	return NewWithWriter(os.Stderr, verbose)
}

// NewWithWriter creates a Logger that writes every level to w.
func NewWithWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		out:     w,
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewWithWriter(io.Discard, false)
}

// SetFileLog enables logging to a file. Debug lines always go to the file,
// even when Verbose is off.
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileLog = f
	return nil
}

// Close closes the log file if open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		return err
	}
	return nil
}

// Info logs informational messages.
func (l *Logger) Info(format string, args ...any) {
	l.log(l.out, "INFO", format, args...)
}

// Debug logs detailed messages only in verbose mode.
func (l *Logger) Debug(format string, args ...any) {
	if l.Verbose {
		l.log(l.out, "DEBUG", format, args...)
		return
	}
	l.log(nil, "DEBUG", format, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(format string, args ...any) {
	l.log(l.out, "WARN", format, args...)
}

// Error logs error messages.
func (l *Logger) Error(format string, args ...any) {
	l.log(l.out, "ERROR", format, args...)
}

// log writes one line to w (if non-nil) and to the file sink.
func (l *Logger) log(w io.Writer, level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil && l.fileLog == nil {
		return
	}

	msg := fmt.Sprintf("["+level+"] "+format+"\n", args...)
	if w != nil {
		fmt.Fprint(w, msg)
	}
	if l.fileLog != nil {
		l.fileLog.WriteString(time.Now().Format(time.RFC3339) + " " + msg)
	}
}
