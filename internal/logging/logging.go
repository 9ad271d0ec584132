package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is a simple leveled logger that writes to the console.
type Logger struct {
	*log.Logger
}

// NewLogger creates a new Logger.
func NewLogger() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// Info logs an informational message with optional key/value pairs.
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.Print("INFO: " + msg + format(kv))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.Print("WARN: " + msg + format(kv))
}

// Error logs an error message.
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.Print("ERROR: " + msg + format(kv))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.Print("DEBUG: " + msg + format(kv))
}

// format renders trailing key/value pairs as " k=v". A dangling key without
// a value is rendered as-is.
func format(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}
