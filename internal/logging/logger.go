package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Entry is a single structured log line
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger is a structured logger
type Logger struct {
	mu          sync.Mutex
	output      io.Writer
	level       Level
	component   string
	fields      map[string]interface{}
	includeFile bool
	jsonFormat  bool
}

// Config holds logger configuration
type Config struct {
	Level       string `json:"level"`
	Output      string `json:"output"` // "stdout", "stderr", or file path
	Component   string `json:"component"`
	IncludeFile bool   `json:"include_file"`
	JSONFormat  bool   `json:"json_format"`
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a new logger with the given configuration
func New(cfg *Config) *Logger {
	var output io.Writer = os.Stdout

	if cfg.Output == "stderr" {
		output = os.Stderr
	} else if cfg.Output != "" && cfg.Output != "stdout" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = file
		}
	}

	return &Logger{
		output:      output,
		level:       ParseLevel(cfg.Level),
		component:   cfg.Component,
		includeFile: cfg.IncludeFile,
		jsonFormat:  cfg.JSONFormat,
		fields:      make(map[string]interface{}),
	}
}

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(&Config{
			Level:      "INFO",
			Output:     "stdout",
			Component:  "app",
			JSONFormat: true,
		})
	})
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultLogger = l
}

// WithComponent returns a new logger with the specified component
func (l *Logger) WithComponent(component string) *Logger {
	nl := l.clone()
	nl.component = component
	return nl
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	nl := l.clone()
	nl.fields[key] = value
	return nl
}

// WithError returns a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	nl := l.clone()
	nl.fields["error"] = err.Error()
	return nl
}

func (l *Logger) clone() *Logger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		output:      l.output,
		level:       l.level,
		component:   l.component,
		fields:      fields,
		includeFile: l.includeFile,
		jsonFormat:  l.jsonFormat,
	}
}

// log writes a log entry. args are either printf arguments or alternating
// key/value pairs when the count is even and the first arg is a string key.
func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		Component: l.component,
	}

	if len(l.fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.fields)+len(args)/2)
		for k, v := range l.fields {
			entry.Fields[k] = v
		}
	}

	if len(args) > 0 {
		if len(args)%2 == 0 && isStringKey(args[0]) {
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{}, len(args)/2)
			}
			for i := 0; i < len(args); i += 2 {
				key, ok := args[i].(string)
				if !ok {
					continue
				}
				if err, isErr := args[i+1].(error); isErr && err != nil {
					entry.Fields[key] = err.Error()
				} else {
					entry.Fields[key] = args[i+1]
				}
			}
		} else {
			entry.Message = fmt.Sprintf(msg, args...)
		}
	}

	if l.includeFile {
		if _, file, line, ok := runtime.Caller(2); ok {
			parts := strings.Split(file, "/")
			entry.File = parts[len(parts)-1]
			entry.Line = line
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonFormat {
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
	} else {
		l.writeText(entry)
	}
}

func isStringKey(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func (l *Logger) writeText(entry Entry) {
	var b strings.Builder

	b.WriteString(entry.Timestamp[:19])
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("[%-5s] ", entry.Level))

	if entry.Component != "" {
		b.WriteString("[")
		b.WriteString(entry.Component)
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		b.WriteString(" | ")
		first := true
		for k, v := range entry.Fields {
			if !first {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(fmt.Sprintf("%v", v))
			first = false
		}
	}

	if entry.File != "" {
		b.WriteString(fmt.Sprintf(" (%s:%d)", entry.File, entry.Line))
	}

	fmt.Fprintln(l.output, b.String())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(FATAL, msg, args...)
	os.Exit(1)
}

// Package-level functions for the default logger

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }

// WithComponent returns a default-logger child with the specified component
func WithComponent(component string) *Logger {
	return Default().WithComponent(component)
}
