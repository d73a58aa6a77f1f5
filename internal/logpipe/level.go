// Package logpipe implements the asynchronous, multi-sink logging core:
// producers hand records to a single dispatcher, which fans them out to
// per-appender queues, each drained by its own worker goroutine.
package logpipe

import (
	"fmt"
	"strings"
)

// Level is a totally ordered log severity. Zero value is Debug.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Fatal
)

// String returns exactly "DEBUG"|"INFO"|"WARNING"|"ERROR"|"FATAL".
func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level string to a Level.
// Surrounding whitespace is trimmed. Unknown strings fail with
// ConfigurationError.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "warning":
		return Warning, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	default:
		return 0, fmt.Errorf("%w: unknown level %q", ConfigurationError, s)
	}
}
