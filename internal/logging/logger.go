// Package logging writes timestamped, levelled lines to an append-only
// log file and mirrors warnings, errors and (optionally) debug output to
// the console.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000"

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

type Logger struct {
	path     string
	fileOnce sync.Once
	fileErr  error
	file     io.WriteCloser
	fileLog  *log.Logger
	console  *log.Logger
	debug    atomic.Bool
	now      func() time.Time
}

// New returns a logger that appends to the file at path (opened on first
// use) and mirrors to console. Either may be empty/nil.
func New(console io.Writer, path string, debug bool) *Logger {
	l := &Logger{path: path, now: time.Now}
	if console != nil {
		l.console = log.New(console, "", 0)
	}
	l.debug.Store(debug)
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(nil, "", false)
}

func (l *Logger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *Logger) DebugEnabled() bool { return l.debug.Load() }

// Path is the log file path, empty when file logging is off.
func (l *Logger) Path() string { return l.path }

func (l *Logger) openFile() {
	if l.path == "" {
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.fileErr = err
		if l.console != nil {
			l.console.Printf("could not open log file %s: %v", l.path, err)
		}
		return
	}
	l.file = f
	l.fileLog = log.New(f, "", 0)
}

func (l *Logger) write(level Level, toConsole bool, format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.fileOnce.Do(l.openFile)
	if l.fileLog != nil {
		l.fileLog.Printf("[%s] [%s] %s", l.now().Format(timeLayout), level, msg)
	}
	if toConsole && l.console != nil {
		if level == LevelDebug {
			l.console.Printf("[DEBUG] %s", msg)
		} else if level != LevelInfo {
			l.console.Printf("%s: %s", level, msg)
		} else {
			l.console.Print(msg)
		}
	}
}

// Infof records to the log file only.
func (l *Logger) Infof(format string, args ...any) {
	l.write(LevelInfo, false, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.write(LevelWarn, true, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.write(LevelError, true, format, args...)
}

// Debugf is dropped unless debug output is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.debug.Load() {
		return
	}
	l.write(LevelDebug, true, format, args...)
}

// Close flushes and closes the log file if it was opened.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
