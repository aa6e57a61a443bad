package monitoring

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

func TestCollectorSeriesByLabels(t *testing.T) {
	m := NewMetricsCollector()
	m.IncrementCounter(MetricOperations, 1, "kind", "query", "outcome", "success")
	m.IncrementCounter(MetricOperations, 2, "outcome", "success", "kind", "query")
	m.IncrementCounter(MetricOperations, 1, "kind", "mutation", "outcome", "failed")

	assert.Equal(t, int64(3), m.Counter(MetricOperations, "kind", "query", "outcome", "success"))
	assert.Equal(t, int64(1), m.Counter(MetricOperations, "kind", "mutation", "outcome", "failed"))
	assert.Zero(t, m.Counter(MetricOperations, "kind", "subscription", "outcome", "failed"))

	var series int
	for _, metric := range m.GetMetrics() {
		if metric.Name == MetricOperations {
			series++
		}
	}
	assert.Equal(t, 2, series)
}

func TestHistogramStats(t *testing.T) {
	h := NewHistogram(latencyBuckets)
	for _, v := range []float64{20, 60, 100, 480} {
		h.Record(v)
	}

	stats := h.GetStats()
	assert.Equal(t, 4.0, stats["count"])
	assert.Equal(t, 165.0, stats["avg"])
	assert.Equal(t, 20.0, stats["min"])
	assert.Equal(t, 480.0, stats["max"])
	assert.Equal(t, 100.0, stats["p50"])
	assert.Equal(t, 500.0, stats["p99"])

	assert.Zero(t, NewHistogram(latencyBuckets).GetStats()["p99"])
}

func TestWatchFoldsSimulatorEvents(t *testing.T) {
	m := NewMetricsCollector()
	events := make(chan models.Event, 16)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	events <- models.Event{Type: models.EventReset, Time: start}
	events <- models.Event{Type: models.EventStage, Time: start, Stage: &models.StageStatus{Stage: models.StageClient, State: models.StateActive}}
	events <- models.Event{Type: models.EventStage, Time: start.Add(300 * time.Millisecond), Stage: &models.StageStatus{Stage: models.StageClient, State: models.StateSuccess}}
	events <- models.Event{Type: models.EventDetail, Detail: &models.Detail{Field: models.DetailCache, Value: "Miss"}}
	events <- models.Event{Type: models.EventDetail, Detail: &models.Detail{Field: models.DetailCache, Value: "N/A"}}
	events <- models.Event{Type: models.EventFeed, Feed: &models.FeedMessage{New: true}}
	events <- models.Event{Type: models.EventStats, Stats: &models.Stats{SubscriptionCount: 2}}
	events <- models.Event{Type: models.EventCompleted, Completion: &models.Completion{
		Kind: models.KindQuery, Outcome: models.OutcomeSuccess, DataSource: models.SourceDynamoDB, Latency: 60 * time.Millisecond,
	}}
	close(events)

	Watch(context.Background(), events, m)

	assert.Equal(t, int64(1), m.Counter(MetricOperations, "kind", "query", "outcome", "success"))
	assert.Equal(t, int64(1), m.Counter(MetricCacheMisses))
	assert.Zero(t, m.Counter(MetricCacheHits))
	assert.Equal(t, int64(1), m.Counter(MetricFeedMessages, "kind", "update"))
	assert.Equal(t, 2.0, m.Gauge(MetricActiveSubs))
	assert.Zero(t, m.Gauge(MetricOperationsInFlight))
	assert.Equal(t, 300.0, m.HistogramStats(MetricStageDuration, "stage", "client")["max"])
	assert.Equal(t, 60.0, m.HistogramStats(MetricOperationLatency, "datasource", "dynamodb")["sum"])
}

func TestWatchStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, make(chan models.Event), NewMetricsCollector())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPrometheusExport(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordOperation(models.Completion{Kind: models.KindQuery, Outcome: models.OutcomeFailed})
	m.RecordCacheLookup(true)
	m.SetActiveSubscriptions(3)

	var buf bytes.Buffer
	require.NoError(t, NewPrometheusExporter(m).Export(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE appsync_sim_operations_total counter")
	assert.Contains(t, out, `appsync_sim_operations_total{kind="query",outcome="failed"} 1`)
	assert.Contains(t, out, "appsync_sim_cache_hits_total 1")
	assert.Contains(t, out, "# HELP appsync_sim_active_subscriptions Currently listening subscriptions")
	assert.Contains(t, out, "appsync_sim_active_subscriptions 3")
	assert.Contains(t, out, "go_goroutines")
}
