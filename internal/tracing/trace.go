package tracing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/ringbuf"
)

// DefaultRetention is the number of operation traces kept
const DefaultRetention = 50

// Span statuses
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// ErrTraceNotFound is returned when no retained trace matches an operation
var ErrTraceNotFound = errors.New("trace not found")

// TraceManager keeps the traces of the most recent operations
type TraceManager struct {
	mu     sync.RWMutex
	traces *ringbuf.Buffer[*Trace]
}

// Trace is the record of a single operation's trip through the pipeline
type Trace struct {
	TraceID       string                `json:"trace_id"`
	OperationID   int64                 `json:"operation_id"`
	OperationName string                `json:"operation_name"`
	Kind          models.OperationKind  `json:"kind"`
	DataSource    models.DataSourceKind `json:"data_source"`
	Resolver      models.ResolverKind   `json:"resolver"`
	StartTime     time.Time             `json:"start_time"`
	EndTime       time.Time             `json:"end_time"`
	Simulated     time.Duration         `json:"simulated_ns"`
	SpanCount     int                   `json:"span_count"`
	ErrorCount    int                   `json:"error_count"`
	Outcome       models.Outcome        `json:"outcome"`
	Reason        string                `json:"reason,omitempty"`
	Spans         []*Span               `json:"spans"`
}

// Span represents one pipeline step within a trace
type Span struct {
	SpanID     string                 `json:"span_id"`
	TraceID    string                 `json:"trace_id"`
	Operation  string                 `json:"operation"`
	Stage      models.StageName       `json:"stage"`
	StartTime  time.Time              `json:"start_time"`
	Simulated  time.Duration          `json:"simulated_ns"`
	Status     string                 `json:"status"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// NewTraceManager creates a new trace manager
func NewTraceManager(retention int) *TraceManager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &TraceManager{
		traces: ringbuf.New[*Trace](retention),
	}
}

// Begin opens a trace for op
func (tm *TraceManager) Begin(op models.Operation, at time.Time) *Trace {
	return &Trace{
		TraceID:       uuid.New().String(),
		OperationID:   op.ID,
		OperationName: op.Name,
		Kind:          op.Kind,
		DataSource:    op.DataSource,
		Resolver:      op.Resolver,
		StartTime:     at,
		Spans:         make([]*Span, 0, 8),
	}
}

// StartSpan adds a span for a pipeline step
func (t *Trace) StartSpan(operation string, stage models.StageName, at time.Time) *Span {
	span := &Span{
		SpanID:    uuid.New().String()[:16],
		TraceID:   t.TraceID,
		Operation: operation,
		Stage:     stage,
		StartTime: at,
		Status:    StatusOK,
	}
	t.Spans = append(t.Spans, span)
	t.SpanCount = len(t.Spans)
	return span
}

// Wait adds simulated time to the span
func (s *Span) Wait(d time.Duration) {
	s.Simulated += d
}

// Set records an attribute on the span
func (s *Span) Set(key string, value interface{}) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]interface{})
	}
	s.Attributes[key] = value
}

// Fail marks the span as errored
func (s *Span) Fail(reason string) {
	s.Status = StatusError
	s.Set("error", reason)
}

// Finish closes the trace and stores it
func (tm *TraceManager) Finish(t *Trace, outcome models.Outcome, reason string, at time.Time) {
	t.EndTime = at
	t.Outcome = outcome
	t.Reason = reason
	t.Simulated = 0
	t.ErrorCount = 0
	for _, span := range t.Spans {
		t.Simulated += span.Simulated
		if span.Status == StatusError {
			t.ErrorCount++
		}
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.traces.Push(t)
}

// GetTrace retrieves the latest trace for an operation id
func (tm *TraceManager) GetTrace(operationID int64) (*Trace, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	traces := tm.traces.Items()
	for i := len(traces) - 1; i >= 0; i-- {
		if traces[i].OperationID == operationID {
			return traces[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrTraceNotFound, operationID)
}

// GetTraces returns up to limit traces, newest first
func (tm *TraceManager) GetTraces(limit int) []*Trace {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	traces := tm.traces.Items()
	if limit <= 0 || limit > len(traces) {
		limit = len(traces)
	}
	out := make([]*Trace, 0, limit)
	for i := len(traces) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, traces[i])
	}
	return out
}
