package monitoring

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

// Alert represents a raised alert
type Alert struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Message     string        `json:"message"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	LastUpdated time.Time     `json:"last_updated"`
	Count       int           `json:"count"`
}

// AlertRule defines a rule for generating alerts
type AlertRule struct {
	Name        string
	Description string
	Severity    AlertSeverity
	Condition   func(metrics []Metric) (bool, string)
	Cooldown    time.Duration
}

// AlertManager evaluates rules against collected metrics
type AlertManager struct {
	mu          sync.RWMutex
	alerts      map[string]*Alert
	rules       []AlertRule
	lastChecked map[string]time.Time
	listeners   []AlertListener
	metrics     *MetricsCollector
}

// AlertListener interface for alert notifications
type AlertListener interface {
	OnAlert(alert Alert)
}

// NewAlertManager creates an alert manager with the default rules
func NewAlertManager(metrics *MetricsCollector) *AlertManager {
	am := &AlertManager{
		alerts:      make(map[string]*Alert),
		lastChecked: make(map[string]time.Time),
		metrics:     metrics,
	}
	am.registerDefaultRules()
	return am
}

// AddListener adds an alert listener
func (am *AlertManager) AddListener(listener AlertListener) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.listeners = append(am.listeners, listener)
}

// AddRule adds a custom alert rule
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

// CheckAlerts evaluates all alert rules
func (am *AlertManager) CheckAlerts() {
	am.mu.Lock()
	defer am.mu.Unlock()

	metrics := am.metrics.GetMetrics()
	now := time.Now()

	for _, rule := range am.rules {
		if lastCheck, exists := am.lastChecked[rule.Name]; exists && now.Sub(lastCheck) < rule.Cooldown {
			continue
		}

		triggered, message := rule.Condition(metrics)
		existing := am.findActiveAlert(rule.Name)

		switch {
		case triggered && existing != nil:
			existing.Count++
			existing.LastUpdated = now
			existing.Message = message
			am.lastChecked[rule.Name] = now
		case triggered:
			alert := &Alert{
				ID:          uuid.NewString(),
				Name:        rule.Name,
				Severity:    rule.Severity,
				Status:      AlertStatusActive,
				Message:     message,
				StartTime:   now,
				LastUpdated: now,
				Count:       1,
			}
			am.alerts[alert.ID] = alert
			am.lastChecked[rule.Name] = now
			am.notifyListeners(*alert)
		case existing != nil:
			existing.Status = AlertStatusResolved
			end := now
			existing.EndTime = &end
			existing.LastUpdated = now
			am.notifyListeners(*existing)
		}
	}
}

// GetActiveAlerts returns all active alerts, oldest first
func (am *AlertManager) GetActiveAlerts() []Alert {
	return am.collect(func(a *Alert) bool { return a.Status == AlertStatusActive })
}

// GetAllAlerts returns all alerts (active and resolved), oldest first
func (am *AlertManager) GetAllAlerts() []Alert {
	return am.collect(func(*Alert) bool { return true })
}

func (am *AlertManager) collect(keep func(*Alert) bool) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	out := make([]Alert, 0, len(am.alerts))
	for _, alert := range am.alerts {
		if keep(alert) {
			out = append(out, *alert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (am *AlertManager) findActiveAlert(name string) *Alert {
	for _, alert := range am.alerts {
		if alert.Name == name && alert.Status == AlertStatusActive {
			return alert
		}
	}
	return nil
}

func (am *AlertManager) notifyListeners(alert Alert) {
	for _, listener := range am.listeners {
		go listener.OnAlert(alert)
	}
}

func (am *AlertManager) registerDefaultRules() {
	am.AddRule(AlertRule{
		Name:        "high_failure_rate",
		Description: "A large share of operations are failing",
		Severity:    SeverityWarning,
		Cooldown:    time.Minute,
		Condition: func(metrics []Metric) (bool, string) {
			var total, failed float64
			for _, m := range metrics {
				if m.Name != MetricOperations {
					continue
				}
				total += m.Value
				if m.Labels["outcome"] == "failed" {
					failed += m.Value
				}
			}
			if total >= 10 && failed/total > 0.25 {
				return true, fmt.Sprintf("%.0f of %.0f operations failed (threshold: 25%%)", failed, total)
			}
			return false, ""
		},
	})

	am.AddRule(AlertRule{
		Name:        "slow_data_source",
		Description: "Data source latency is unusually high",
		Severity:    SeverityInfo,
		Cooldown:    time.Minute,
		Condition: func(metrics []Metric) (bool, string) {
			for _, m := range metrics {
				if m.Name == MetricOperationLatency+"_p99" && m.Value > 750 {
					return true, fmt.Sprintf("99th percentile %s latency is %.0fms (threshold: 750ms)", m.Labels["datasource"], m.Value)
				}
			}
			return false, ""
		},
	})

	am.AddRule(AlertRule{
		Name:        "low_cache_hit_rate",
		Description: "Most cacheable queries miss the response cache",
		Severity:    SeverityInfo,
		Cooldown:    5 * time.Minute,
		Condition: func(metrics []Metric) (bool, string) {
			var hits, misses float64
			for _, m := range metrics {
				switch m.Name {
				case MetricCacheHits:
					hits = m.Value
				case MetricCacheMisses:
					misses = m.Value
				}
			}
			if lookups := hits + misses; lookups >= 10 && hits/lookups < 0.2 {
				return true, fmt.Sprintf("Cache hit rate is %.0f%% over %.0f lookups", hits/lookups*100, lookups)
			}
			return false, ""
		},
	})
}

// LogAlertListener writes alerts to the process logger
type LogAlertListener struct{}

func NewLogAlertListener() *LogAlertListener {
	return &LogAlertListener{}
}

// OnAlert handles alert notifications
func (l *LogAlertListener) OnAlert(alert Alert) {
	event := log.Warn()
	if alert.Status == AlertStatusResolved {
		event = log.Info()
	}
	event.Str("alert", alert.Name).
		Str("severity", string(alert.Severity)).
		Str("status", string(alert.Status)).
		Msg(alert.Message)
}
