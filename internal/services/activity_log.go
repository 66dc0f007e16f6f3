package services

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/internal/models"
	"github.com/benmeehan/hospital-finder/internal/utils"
)

const errorNotificationTitle = "Error Occurred"

// Notifier receives blocking user notifications.
type Notifier interface {
	Notify(n models.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n models.Notification)

func (f NotifierFunc) Notify(n models.Notification) { f(n) }

// ActivityLog is the screen's append-only diagnostic trail. Every entry is
// mirrored to the service logger; Error entries also raise a notification.
type ActivityLog struct {
	logger zerolog.Logger
	clock  utils.Clock

	mu        sync.RWMutex
	entries   []models.LogEntry
	notifiers []Notifier
}

// NewActivityLog creates an empty trail.
func NewActivityLog(logger zerolog.Logger, clock utils.Clock) *ActivityLog {
	return &ActivityLog{logger: logger, clock: clock}
}

// AddNotifier registers n for Error entries.
func (a *ActivityLog) AddNotifier(n Notifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifiers = append(a.notifiers, n)
}

// Info appends an Info entry.
func (a *ActivityLog) Info(message string) {
	a.append(models.LogLevelInfo, message)
	a.logger.Info().Msg(message)
}

// Error appends an Error entry and notifies the user.
func (a *ActivityLog) Error(message string) {
	entry, notifiers := a.append(models.LogLevelError, message)
	a.logger.Error().Msg(message)

	n := models.Notification{
		Title:     errorNotificationTitle,
		Message:   message,
		Timestamp: entry.Timestamp,
	}
	for _, notifier := range notifiers {
		notifier.Notify(n)
	}
}

// Entries returns a copy of the trail, oldest first.
func (a *ActivityLog) Entries() []models.LogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.LogEntry(nil), a.entries...)
}

func (a *ActivityLog) append(level models.LogLevel, message string) (models.LogEntry, []Notifier) {
	entry := models.LogEntry{
		Timestamp: a.clock.Now(),
		Level:     level,
		Message:   message,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return entry, append([]Notifier(nil), a.notifiers...)
}
