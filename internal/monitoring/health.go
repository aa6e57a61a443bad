package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

var statusRank = map[HealthStatus]int{
	HealthStatusOK:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// ComponentHealth represents health information for a single component
type ComponentHealth struct {
	Name         string                 `json:"name"`
	Status       HealthStatus           `json:"status"`
	Message      string                 `json:"message,omitempty"`
	LastChecked  time.Time              `json:"last_checked"`
	ResponseTime time.Duration          `json:"response_time_ms"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SystemHealth is the simulator's health: the worst component status plus a
// count of components per status
type SystemHealth struct {
	Status     HealthStatus                `json:"status"`
	Timestamp  time.Time                   `json:"timestamp"`
	Version    string                      `json:"version"`
	Uptime     time.Duration               `json:"uptime_seconds"`
	Checks     map[HealthStatus]int        `json:"checks"`
	Components map[string]*ComponentHealth `json:"components"`
}

// HealthChecker defines the interface for health checks
type HealthChecker interface {
	Name() string
	Check() (*ComponentHealth, error)
}

// HealthMonitor runs the registered checkers on demand
type HealthMonitor struct {
	mu        sync.RWMutex
	checkers  map[string]HealthChecker
	startTime time.Time
	version   string
	now       func() time.Time
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(version string) *HealthMonitor {
	return &HealthMonitor{
		checkers:  make(map[string]HealthChecker),
		startTime: time.Now(),
		version:   version,
		now:       time.Now,
	}
}

// RegisterChecker registers a health checker, replacing one with the same name
func (h *HealthMonitor) RegisterChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[checker.Name()] = checker
}

// GetHealth runs every checker concurrently. A checker error marks its
// component down.
func (h *HealthMonitor) GetHealth() *SystemHealth {
	h.mu.RLock()
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for name, c := range h.checkers {
		checkers[name] = c
	}
	h.mu.RUnlock()

	components := make(map[string]*ComponentHealth, len(checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, c HealthChecker) {
			defer wg.Done()
			component := h.run(name, c)
			mu.Lock()
			components[name] = component
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	now := h.now()
	health := &SystemHealth{
		Status:     HealthStatusOK,
		Timestamp:  now,
		Version:    h.version,
		Uptime:     now.Sub(h.startTime),
		Checks:     map[HealthStatus]int{},
		Components: components,
	}
	for _, c := range components {
		health.Checks[c.Status]++
		if statusRank[c.Status] > statusRank[health.Status] {
			health.Status = c.Status
		}
	}
	return health
}

func (h *HealthMonitor) run(name string, c HealthChecker) *ComponentHealth {
	start := h.now()
	component, err := c.Check()
	if err != nil || component == nil {
		msg := "no result"
		if err != nil {
			msg = err.Error()
		}
		log.Warn().Str("component", name).Str("error", msg).Msg("Health check failed")
		component = &ComponentHealth{Name: name, Status: HealthStatusDown, Message: msg}
	}
	component.LastChecked = h.now()
	component.ResponseTime = component.LastChecked.Sub(start)
	return component
}

// HTTPHandler serves the aggregated health. A degraded simulator still
// serves, so only down maps to 503.
func (h *HealthMonitor) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		statusCode := http.StatusOK
		if health.Status == HealthStatusDown {
			statusCode = http.StatusServiceUnavailable
		}
		writeHealth(w, statusCode, health)
	}
}

// LivenessHandler answers as long as the process serves requests
func (h *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{
			"status":    "alive",
			"timestamp": h.now().Format(time.RFC3339),
		})
	}
}

func writeHealth(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write health response")
	}
}
