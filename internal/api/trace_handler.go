package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/your-username/appsync-flow-simulator/internal/tracing"
)

// TraceHandler handles trace-related API endpoints
type TraceHandler struct {
	traceManager *tracing.TraceManager
}

// NewTraceHandler creates a new trace handler
func NewTraceHandler(traceManager *tracing.TraceManager) *TraceHandler {
	return &TraceHandler{
		traceManager: traceManager,
	}
}

// GetTrace retrieves the trace of one operation
func (h *TraceHandler) GetTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := h.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// GetTraces retrieves the most recent traces
func (h *TraceHandler) GetTraces(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	traces := h.traceManager.GetTraces(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"traces": traces,
		"count":  len(traces),
	})
}

// GetTraceTimeline retrieves an operation's spans laid out on the simulated clock
func (h *TraceHandler) GetTraceTimeline(w http.ResponseWriter, r *http.Request) {
	trace, err := h.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildTimeline(trace))
}

func (h *TraceHandler) lookup(r *http.Request) (*tracing.Trace, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: operation id %q", errInvalidBody, raw)
	}
	return h.traceManager.GetTrace(id)
}

// buildTimeline places each span after the simulated time of its predecessors
func buildTimeline(trace *tracing.Trace) map[string]interface{} {
	events := make([]map[string]interface{}, 0, len(trace.Spans))
	var offset int64

	for _, span := range trace.Spans {
		duration := span.Simulated.Milliseconds()
		events = append(events, map[string]interface{}{
			"id":        span.SpanID,
			"operation": span.Operation,
			"stage":     span.Stage,
			"start":     offset,
			"end":       offset + duration,
			"duration":  duration,
			"status":    span.Status,
		})
		offset += duration
	}

	return map[string]interface{}{
		"trace_id":     trace.TraceID,
		"operation_id": trace.OperationID,
		"outcome":      trace.Outcome,
		"duration":     trace.Simulated.Milliseconds(),
		"span_count":   trace.SpanCount,
		"error_count":  trace.ErrorCount,
		"events":       events,
	}
}
