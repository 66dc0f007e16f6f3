package models

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel of a screen diagnostic entry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelError LogLevel = "error"
)

// LogEntry is one line of the screen's append-only diagnostic trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// String renders the entry as "[timestamp] LEVEL: message".
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.UTC().Format(time.RFC3339Nano), strings.ToUpper(string(e.Level)), e.Message)
}
