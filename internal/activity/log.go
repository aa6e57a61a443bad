// Package activity keeps the bounded trace of human-readable simulator events.
package activity

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/ringbuf"
)

const (
	// DefaultCapacity is the number of entries retained
	DefaultCapacity = 100

	clearedMessage = "Log cleared. Ready for new operations..."
)

// Log is a bounded, append-only activity log. Once full, the oldest entry is
// dropped for each new one.
type Log struct {
	mu  sync.RWMutex
	buf *ringbuf.Buffer[models.LogEntry]
	now func() time.Time
}

// New creates a log retaining at most capacity entries
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		buf: ringbuf.New[models.LogEntry](capacity),
		now: time.Now,
	}
}

// WithClock replaces the time source
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Add appends an entry and mirrors it to the process logger
func (l *Log) Add(severity models.Severity, message string) models.LogEntry {
	entry := models.LogEntry{
		Timestamp: l.now(),
		Severity:  severity,
		Message:   message,
	}

	l.mu.Lock()
	l.buf.Push(entry)
	l.mu.Unlock()

	log.WithLevel(levelFor(severity)).Str("component", "appsync").Msg(message)
	return entry
}

// Clear drops every entry and leaves a single marker entry in their place
func (l *Log) Clear() models.LogEntry {
	entry := models.LogEntry{
		Timestamp: l.now(),
		Severity:  models.SeverityInfo,
		Message:   clearedMessage,
	}

	l.mu.Lock()
	l.buf.Reset()
	l.buf.Push(entry)
	l.mu.Unlock()

	return entry
}

// Entries returns the retained entries, oldest first
func (l *Log) Entries() []models.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.Items()
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.Len()
}

func levelFor(severity models.Severity) zerolog.Level {
	switch severity {
	case models.SeverityError:
		return zerolog.ErrorLevel
	case models.SeverityWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.DebugLevel
	}
}
