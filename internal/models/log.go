package models

import (
	"time"
)

// Severity tags activity log entries
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// String renders the entry the way the activity panel shows it
func (e LogEntry) String() string {
	return "[" + e.Timestamp.Format("15:04:05") + "] " + e.Message
}

type FeedMessage struct {
	Timestamp time.Time   `json:"timestamp"`
	Message   string      `json:"message"`
	New       bool        `json:"new"`
	Data      interface{} `json:"data,omitempty"`
}

func (m FeedMessage) String() string {
	return "[" + m.Timestamp.Format("15:04:05") + "] " + m.Message
}

type WebSocketMessage struct {
	Type   string      `json:"type"`
	Action string      `json:"action,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Types  []EventType `json:"types,omitempty"`
}
