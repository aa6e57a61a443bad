package monitoring

import (
	"fmt"

	"github.com/your-username/appsync-flow-simulator/internal/cache"
	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// SimulatorState is the read side of a simulator needed for health checks
type SimulatorState interface {
	Stats() models.Stats
	Running() bool
	ActiveSubscriptions() []string
	CacheStats() cache.CacheStats
}

// SimulatorHealthChecker reports the simulator's counters
type SimulatorHealthChecker struct {
	sim SimulatorState
}

func NewSimulatorHealthChecker(sim SimulatorState) *SimulatorHealthChecker {
	return &SimulatorHealthChecker{sim: sim}
}

// Name returns the name of the checker
func (s *SimulatorHealthChecker) Name() string {
	return "simulator"
}

// Check performs the health check
func (s *SimulatorHealthChecker) Check() (*ComponentHealth, error) {
	if s.sim == nil {
		return nil, fmt.Errorf("simulator not initialized")
	}

	stats := s.sim.Stats()
	cacheStats := s.sim.CacheStats()
	return &ComponentHealth{
		Name:   s.Name(),
		Status: HealthStatusOK,
		Details: map[string]interface{}{
			"running":              s.sim.Running(),
			"total_operations":     stats.TotalOperations,
			"active_subscriptions": len(s.sim.ActiveSubscriptions()),
			"cache_entries":        cacheStats.Size,
			"cache_hit_rate":       cacheStats.HitRate,
		},
	}, nil
}

// OperationsHealthChecker flags a high share of failed operations
type OperationsHealthChecker struct {
	metrics    *MetricsCollector
	minSamples int64
	threshold  float64
}

// NewOperationsHealthChecker creates a checker that degrades once more than
// threshold of at least minSamples operations failed
func NewOperationsHealthChecker(metrics *MetricsCollector, minSamples int64, threshold float64) *OperationsHealthChecker {
	return &OperationsHealthChecker{
		metrics:    metrics,
		minSamples: minSamples,
		threshold:  threshold,
	}
}

// Name returns the name of the checker
func (o *OperationsHealthChecker) Name() string {
	return "operations"
}

// Check performs the health check
func (o *OperationsHealthChecker) Check() (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    o.Name(),
		Status:  HealthStatusOK,
		Details: make(map[string]interface{}),
	}

	total, failed := operationTotals(o.metrics)
	health.Details["total"] = total
	health.Details["failed"] = failed

	if total == 0 {
		return health, nil
	}
	ratio := float64(failed) / float64(total)
	health.Details["failure_ratio"] = ratio

	if total >= o.minSamples && ratio > o.threshold {
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("%.0f%% of operations failed", ratio*100)
	}
	return health, nil
}

// ClientCounter reports connected viewers
type ClientCounter interface {
	ClientCount() int
}

// ConnectionsHealthChecker reports WebSocket viewers
type ConnectionsHealthChecker struct {
	hub ClientCounter
}

func NewConnectionsHealthChecker(hub ClientCounter) *ConnectionsHealthChecker {
	return &ConnectionsHealthChecker{hub: hub}
}

// Name returns the name of the checker
func (c *ConnectionsHealthChecker) Name() string {
	return "websocket"
}

// Check performs the health check
func (c *ConnectionsHealthChecker) Check() (*ComponentHealth, error) {
	return &ComponentHealth{
		Name:    c.Name(),
		Status:  HealthStatusOK,
		Details: map[string]interface{}{"clients": c.hub.ClientCount()},
	}, nil
}

func operationTotals(metrics *MetricsCollector) (total, failed int64) {
	for _, m := range metrics.GetMetrics() {
		if m.Name != MetricOperations {
			continue
		}
		total += int64(m.Value)
		if m.Labels["outcome"] == string(models.OutcomeFailed) {
			failed += int64(m.Value)
		}
	}
	return total, failed
}
