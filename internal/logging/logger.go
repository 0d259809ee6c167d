package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract. Code throughout
// the engine depends on this interface rather than a concrete sink.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger { return nopLogger{} }

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

type fileLogger struct {
	component string
	level     Level
	sink      *sink
}

type sink struct {
	mu     sync.Mutex
	file   *os.File
	stderr *log.Logger
}

var (
	sharedSink     *sink
	sharedSinkOnce sync.Once
)

func getSink() *sink {
	sharedSinkOnce.Do(func() {
		s := &sink{stderr: log.New(os.Stderr, "", 0)}
		home, err := os.UserHomeDir()
		if err == nil {
			path := filepath.Join(home, "maestro-debug.log")
			if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				s.file = file
			}
		}
		sharedSink = s
	})
	return sharedSink
}

// NewComponentLogger returns the default application logger scoped to a
// component. Debug and info go to the debug log file only; warn and error
// are mirrored to stderr.
func NewComponentLogger(component string) Logger {
	return &fileLogger{component: component, level: LevelDebug, sink: getSink()}
}

func (l *fileLogger) write(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05.000"), level, l.component, msg)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file != nil {
		fmt.Fprintln(l.sink.file, line)
	}
	if level >= LevelWarn {
		l.sink.stderr.Println(line)
	}
}

func (l *fileLogger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *fileLogger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *fileLogger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *fileLogger) Error(format string, args ...any) { l.write(LevelError, format, args...) }
