package api

import (
	"net/http"
	"time"

	"github.com/your-username/appsync-flow-simulator/internal/failures"
	"github.com/your-username/appsync-flow-simulator/internal/monitoring"
)

// GetMetrics returns current simulator metrics
func GetMetrics(collector *monitoring.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := collector.GetMetrics()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"metrics":   metrics,
			"timestamp": time.Now().UTC(),
		})
	}
}

// GetAlerts returns all alerts
func GetAlerts(manager *monitoring.AlertManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts := manager.GetAllAlerts()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"alerts": alerts,
			"total":  len(alerts),
		})
	}
}

// GetActiveAlerts returns only active alerts
func GetActiveAlerts(manager *monitoring.AlertManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts := manager.GetActiveAlerts()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"alerts":       alerts,
			"active_count": len(alerts),
		})
	}
}

// GetFailures returns failed operations grouped by cause, with any anomalies
func GetFailures(detector *failures.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups := detector.GetStats()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"failures":  groups,
			"total":     len(groups),
			"anomalies": detector.GetAnomalies(),
		})
	}
}

// ResetFailures forgets all recorded failure groups
func ResetFailures(detector *failures.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detector.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}
