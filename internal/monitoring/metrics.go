package monitoring

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric names recorded by the collector
const (
	MetricOperations         = "operations"
	MetricOperationLatency   = "operation_latency_ms"
	MetricStageDuration      = "stage_duration_ms"
	MetricCacheHits          = "cache_hits"
	MetricCacheMisses        = "cache_misses"
	MetricFeedMessages       = "feed_messages"
	MetricActiveSubs         = "active_subscriptions"
	MetricWebSocketClients   = "websocket_connections"
	MetricOperationRate      = "operation_rate_per_second"
	MetricOperationsInFlight = "operations_in_flight"
)

// Latency buckets in milliseconds, sized to the simulated delays
var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Metric represents a single metric
type Metric struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description,omitempty"`
}

type series struct {
	name   string
	labels map[string]string
}

// MetricsCollector collects and manages metrics. Series are keyed by name
// plus sorted labels.
type MetricsCollector struct {
	mu            sync.RWMutex
	series        map[string]series
	counters      map[string]*int64
	gauges        map[string]*float64
	histograms    map[string]*Histogram
	descriptions  map[string]string
	operationRate *RateCounter
}

// Histogram tracks distribution of values
type Histogram struct {
	mu      sync.Mutex
	count   int64
	sum     float64
	min     float64
	max     float64
	buckets []float64
	values  []int64
}

// RateCounter tracks rate over time
type RateCounter struct {
	mu            sync.Mutex
	windowSize    time.Duration
	buckets       []int64
	bucketTime    time.Duration
	currentBucket int
	lastUpdate    time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		series:        make(map[string]series),
		counters:      make(map[string]*int64),
		gauges:        make(map[string]*float64),
		histograms:    make(map[string]*Histogram),
		descriptions:  make(map[string]string),
		operationRate: NewRateCounter(time.Minute, time.Second),
	}
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string, delta int64, labels ...string) {
	key := m.register(name, labels)

	m.mu.Lock()
	counter, exists := m.counters[key]
	if !exists {
		counter = new(int64)
		m.counters[key] = counter
	}
	m.mu.Unlock()

	atomic.AddInt64(counter, delta)
}

// SetGauge sets a gauge metric value
func (m *MetricsCollector) SetGauge(name string, value float64, labels ...string) {
	key := m.register(name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gauges[key]; !exists {
		m.gauges[key] = new(float64)
	}
	*m.gauges[key] = value
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value float64, labels ...string) {
	key := m.register(name, labels)

	m.mu.Lock()
	hist, exists := m.histograms[key]
	if !exists {
		hist = NewHistogram(latencyBuckets)
		m.histograms[key] = hist
	}
	m.mu.Unlock()

	hist.Record(value)
}

// SetDescription sets description for a metric
func (m *MetricsCollector) SetDescription(name string, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptions[name] = description
}

// Counter returns the current value of one counter series
func (m *MetricsCollector) Counter(name string, labels ...string) int64 {
	key, _ := seriesKey(name, labels)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.counters[key]; ok {
		return atomic.LoadInt64(c)
	}
	return 0
}

// Gauge returns the current value of one gauge series
func (m *MetricsCollector) Gauge(name string, labels ...string) float64 {
	key, _ := seriesKey(name, labels)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.gauges[key]; ok {
		return *g
	}
	return 0
}

// HistogramStats returns the statistics of one histogram series
func (m *MetricsCollector) HistogramStats(name string, labels ...string) map[string]float64 {
	key, _ := seriesKey(name, labels)

	m.mu.RLock()
	hist, ok := m.histograms[key]
	m.mu.RUnlock()
	if !ok {
		return NewHistogram(latencyBuckets).GetStats()
	}
	return hist.GetStats()
}

// GetMetrics returns all current metrics
func (m *MetricsCollector) GetMetrics() []Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var metrics []Metric
	timestamp := time.Now()

	for key, counter := range m.counters {
		s := m.series[key]
		metrics = append(metrics, Metric{
			Name:        s.name,
			Type:        string(MetricTypeCounter),
			Value:       float64(atomic.LoadInt64(counter)),
			Labels:      s.labels,
			Timestamp:   timestamp,
			Description: m.descriptions[s.name],
		})
	}

	for key, gauge := range m.gauges {
		s := m.series[key]
		metrics = append(metrics, Metric{
			Name:        s.name,
			Type:        string(MetricTypeGauge),
			Value:       *gauge,
			Labels:      s.labels,
			Timestamp:   timestamp,
			Description: m.descriptions[s.name],
		})
	}

	// Histograms are flattened into one gauge per statistic
	for key, hist := range m.histograms {
		s := m.series[key]
		for statName, value := range hist.GetStats() {
			metrics = append(metrics, Metric{
				Name:        s.name + "_" + statName,
				Type:        string(MetricTypeGauge),
				Value:       value,
				Labels:      s.labels,
				Timestamp:   timestamp,
				Description: m.descriptions[s.name],
			})
		}
	}

	metrics = append(metrics, Metric{
		Name:        MetricOperationRate,
		Type:        string(MetricTypeGauge),
		Value:       m.operationRate.GetRate(),
		Timestamp:   timestamp,
		Description: "Operation execution rate per second",
	})

	sort.SliceStable(metrics, func(i, j int) bool {
		if metrics[i].Name != metrics[j].Name {
			return metrics[i].Name < metrics[j].Name
		}
		return labelString(metrics[i].Labels) < labelString(metrics[j].Labels)
	})
	return metrics
}

// RecordOperation records one operation reaching a terminal state
func (m *MetricsCollector) RecordOperation(c models.Completion) {
	m.IncrementCounter(MetricOperations, 1, "kind", string(c.Kind), "outcome", string(c.Outcome))
	m.operationRate.Increment(1)
	if c.Outcome == models.OutcomeSuccess {
		m.RecordHistogram(MetricOperationLatency, float64(c.Latency.Milliseconds()), "datasource", string(c.DataSource))
	}
}

// RecordStage records the time spent by one pipeline stage
func (m *MetricsCollector) RecordStage(stage models.StageName, d time.Duration) {
	m.RecordHistogram(MetricStageDuration, float64(d.Milliseconds()), "stage", string(stage))
}

// RecordCacheLookup records a response cache hit or miss
func (m *MetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		m.IncrementCounter(MetricCacheHits, 1)
		return
	}
	m.IncrementCounter(MetricCacheMisses, 1)
}

// RecordFeedMessage records one message delivered to the subscription feed
func (m *MetricsCollector) RecordFeedMessage(isNew bool) {
	kind := "status"
	if isNew {
		kind = "update"
	}
	m.IncrementCounter(MetricFeedMessages, 1, "kind", kind)
}

// SetActiveSubscriptions records the number of listening subscriptions
func (m *MetricsCollector) SetActiveSubscriptions(n int64) {
	m.SetGauge(MetricActiveSubs, float64(n))
}

// SetWebSocketConnections records the number of connected viewers
func (m *MetricsCollector) SetWebSocketConnections(n int) {
	m.SetGauge(MetricWebSocketClients, float64(n))
}

// SetInFlight records whether an operation is executing
func (m *MetricsCollector) SetInFlight(running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.SetGauge(MetricOperationsInFlight, v)
}

// register remembers the label set behind a series key
func (m *MetricsCollector) register(name string, labels []string) string {
	key, labelMap := seriesKey(name, labels)

	m.mu.Lock()
	if _, ok := m.series[key]; !ok {
		m.series[key] = series{name: name, labels: labelMap}
	}
	m.mu.Unlock()
	return key
}

// seriesKey builds a stable key from a name and key/value label pairs. A
// trailing unpaired label is ignored.
func seriesKey(name string, labels []string) (string, map[string]string) {
	if len(labels) < 2 {
		return name, nil
	}
	labelMap := make(map[string]string, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		labelMap[labels[i]] = labels[i+1]
	}
	return name + "{" + labelString(labelMap) + "}", labelMap
}

func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// NewHistogram creates a new histogram
func NewHistogram(buckets []float64) *Histogram {
	return &Histogram{
		buckets: buckets,
		values:  make([]int64, len(buckets)+1),
		min:     1e9,
		max:     -1e9,
	}
}

// Record records a value in the histogram
func (h *Histogram) Record(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.count++
	h.sum += value

	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}

	bucketIndex := len(h.buckets)
	for i, threshold := range h.buckets {
		if value <= threshold {
			bucketIndex = i
			break
		}
	}
	h.values[bucketIndex]++
}

// GetStats returns histogram statistics
func (h *Histogram) GetStats() map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return map[string]float64{
			"count": 0,
			"sum":   0,
			"avg":   0,
			"min":   0,
			"max":   0,
			"p50":   0,
			"p90":   0,
			"p99":   0,
		}
	}

	return map[string]float64{
		"count": float64(h.count),
		"sum":   h.sum,
		"avg":   h.sum / float64(h.count),
		"min":   h.min,
		"max":   h.max,
		"p50":   h.getPercentile(0.5),
		"p90":   h.getPercentile(0.9),
		"p99":   h.getPercentile(0.99),
	}
}

// getPercentile returns the upper bound of the bucket holding the percentile
func (h *Histogram) getPercentile(p float64) float64 {
	target := int64(math.Ceil(float64(h.count) * p))
	cumulative := int64(0)

	for i, count := range h.values {
		cumulative += count
		if cumulative >= target {
			if i < len(h.buckets) {
				return h.buckets[i]
			}
			return h.max
		}
	}

	return h.max
}

// NewRateCounter creates a new rate counter
func NewRateCounter(windowSize, bucketTime time.Duration) *RateCounter {
	numBuckets := int(windowSize / bucketTime)
	return &RateCounter{
		windowSize: windowSize,
		buckets:    make([]int64, numBuckets),
		bucketTime: bucketTime,
		lastUpdate: time.Now(),
	}
}

// Increment increments the counter
func (r *RateCounter) Increment(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rotateBuckets()
	r.buckets[r.currentBucket] += int64(count)
}

// GetRate returns the current rate per second
func (r *RateCounter) GetRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rotateBuckets()

	sum := int64(0)
	for _, count := range r.buckets {
		sum += count
	}

	return float64(sum) / r.windowSize.Seconds()
}

func (r *RateCounter) rotateBuckets() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate)

	bucketsToRotate := int(elapsed / r.bucketTime)
	if bucketsToRotate > 0 {
		if bucketsToRotate >= len(r.buckets) {
			for i := range r.buckets {
				r.buckets[i] = 0
			}
			r.currentBucket = 0
		} else {
			for i := 0; i < bucketsToRotate; i++ {
				r.currentBucket = (r.currentBucket + 1) % len(r.buckets)
				r.buckets[r.currentBucket] = 0
			}
		}
		r.lastUpdate = now
	}
}
