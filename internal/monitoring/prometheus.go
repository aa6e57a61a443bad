package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
)

const namespace = "appsync_sim_"

// PrometheusExporter exports metrics in Prometheus format
type PrometheusExporter struct {
	metrics *MetricsCollector
	mu      sync.RWMutex
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(metrics *MetricsCollector) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: metrics,
	}
}

// Export writes metrics in Prometheus exposition format
func (p *PrometheusExporter) Export(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	groups := make(map[string][]Metric)
	for _, metric := range p.metrics.GetMetrics() {
		groups[metric.Name] = append(groups[metric.Name], metric)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		metrics := groups[name]
		metricType := getPrometheusType(metrics[0].Type)
		prometheusName := toPrometheusName(name)
		if metricType == "counter" && !strings.HasSuffix(prometheusName, "_total") {
			prometheusName += "_total"
		}

		if _, err := fmt.Fprintf(w, "# HELP %s %s\n", prometheusName, getMetricHelp(name)); err != nil {
			return err
		}
		fmt.Fprintf(w, "# TYPE %s %s\n", prometheusName, metricType)
		for _, m := range metrics {
			fmt.Fprintf(w, "%s%s %g\n", prometheusName, formatLabels(buildLabels(m.Labels)), m.Value)
		}
		fmt.Fprintln(w)
	}

	writeGoMetrics(w)
	return nil
}

// toPrometheusName converts metric name to Prometheus format
func toPrometheusName(name string) string {
	name = namespace + name
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// getPrometheusType maps internal metric type to Prometheus type
func getPrometheusType(metricType string) string {
	switch metricType {
	case "counter":
		return "counter"
	case "gauge":
		return "gauge"
	case "histogram":
		return "histogram"
	default:
		return "untyped"
	}
}

var helpTexts = map[string]string{
	MetricOperations:         "Operations that reached a terminal state",
	MetricCacheHits:          "Response cache lookups that returned a fresh entry",
	MetricCacheMisses:        "Response cache lookups that missed or found an expired entry",
	MetricFeedMessages:       "Messages appended to the subscription feed",
	MetricActiveSubs:         "Currently listening subscriptions",
	MetricWebSocketClients:   "Current number of WebSocket connections",
	MetricOperationRate:      "Operation execution rate per second",
	MetricOperationsInFlight: "Whether an operation is executing",
}

// getMetricHelp returns help text for metrics
func getMetricHelp(name string) string {
	if help, ok := helpTexts[name]; ok {
		return help
	}
	for _, base := range []string{MetricOperationLatency, MetricStageDuration} {
		if strings.HasPrefix(name, base+"_") {
			stat := strings.TrimPrefix(name, base+"_")
			switch base {
			case MetricOperationLatency:
				return fmt.Sprintf("Simulated data source latency in milliseconds (%s)", stat)
			default:
				return fmt.Sprintf("Wall time spent per pipeline stage in milliseconds (%s)", stat)
			}
		}
	}
	return fmt.Sprintf("Metric %s", name)
}

// buildLabels constructs label string from map
func buildLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		v = strings.ReplaceAll(v, "\n", `\n`)
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// formatLabels formats labels for output
func formatLabels(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// writeGoMetrics writes Go runtime metrics
func writeGoMetrics(w io.Writer) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	fmt.Fprintln(w, "# HELP go_memstats_alloc_bytes Number of bytes allocated and still in use.")
	fmt.Fprintln(w, "# TYPE go_memstats_alloc_bytes gauge")
	fmt.Fprintf(w, "go_memstats_alloc_bytes %d\n", m.Alloc)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_goroutines Number of goroutines that currently exist.")
	fmt.Fprintln(w, "# TYPE go_goroutines gauge")
	fmt.Fprintf(w, "go_goroutines %d\n", runtime.NumGoroutine())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_gc_cycles_total Number of completed GC cycles.")
	fmt.Fprintln(w, "# TYPE go_gc_cycles_total counter")
	fmt.Fprintf(w, "go_gc_cycles_total %d\n", m.NumGC)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_info Information about the Go environment.")
	fmt.Fprintln(w, "# TYPE go_info gauge")
	fmt.Fprintf(w, "go_info{version=\"%s\"} 1\n", runtime.Version())
}
