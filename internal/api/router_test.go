package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/appsync-flow-simulator/internal/failures"
	"github.com/your-username/appsync-flow-simulator/internal/flow"
	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/monitoring"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
)

const getUserQuery = `query GetUser { getUser(id: "123") { id name } }`

func newTestServer(t *testing.T, opts simulator.Options) (*httptest.Server, *simulator.Simulator, *monitoring.MetricsCollector) {
	t.Helper()

	if opts.Random == nil {
		opts.Random = flow.NewFixedRandom(0.5)
	}
	if opts.Sleeper == nil {
		opts.Sleeper = flow.NoDelay{}
	}
	sim := simulator.New(opts)
	metrics := monitoring.NewMetricsCollector()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events, unsubscribe := sim.Subscribe(0)
	t.Cleanup(unsubscribe)
	go monitoring.Watch(ctx, events, metrics)

	detector := failures.NewDetector()
	failureEvents, unsubscribeFailures := sim.Subscribe(0)
	t.Cleanup(unsubscribeFailures)
	go failures.Watch(ctx, failureEvents, detector)

	srv := httptest.NewServer(NewRouter(Deps{Simulator: sim, Metrics: metrics, Failures: detector}))
	t.Cleanup(srv.Close)
	return srv, sim, metrics
}

func do(t *testing.T, srv *httptest.Server, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+"/api/v1"+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestExecuteOperation(t *testing.T) {
	srv, sim, _ := newTestServer(t, simulator.Options{})

	resp, body := do(t, srv, http.MethodPost, "/operations", map[string]string{"query": getUserQuery})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := body["result"].(map[string]interface{})
	assert.Equal(t, "success", result["outcome"])
	assert.Equal(t, "60ms", result["response_time"])
	data := result["data"].(map[string]interface{})
	user := data["getUser"].(map[string]interface{})
	assert.Equal(t, "John Doe", user["name"])

	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, 1.0, stats["query_count"])
	assert.Equal(t, int64(1), sim.Stats().TotalOperations)

	resp, body = do(t, srv, http.MethodGet, "/operations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["count"])
}

func TestListOperationsPaging(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})
	for _, name := range []string{"First", "Second", "Third"} {
		resp, _ := do(t, srv, http.MethodPost, "/operations", map[string]string{"query": "query " + name + " { ping }"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	names := func(body map[string]interface{}) []string {
		var out []string
		for _, op := range body["operations"].([]interface{}) {
			out = append(out, op.(map[string]interface{})["name"].(string))
		}
		return out
	}

	_, body := do(t, srv, http.MethodGet, "/operations?page_size=2", nil)
	assert.Equal(t, []string{"First", "Second"}, names(body))
	assert.Equal(t, 3.0, body["count"])
	assert.Equal(t, true, body["has_more"])

	_, body = do(t, srv, http.MethodGet, "/operations?page_size=2&page_token="+body["next_page_token"].(string), nil)
	assert.Equal(t, []string{"Third"}, names(body))
	assert.Equal(t, false, body["has_more"])

	_, body = do(t, srv, http.MethodGet, "/operations?sort_order=desc&page_size=1", nil)
	assert.Equal(t, []string{"Third"}, names(body))

	resp, _ := do(t, srv, http.MethodGet, "/operations?page_size=many", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})
	do(t, srv, http.MethodPost, "/operations", map[string]string{"query": getUserQuery})

	resp, err := srv.Client().Get(srv.URL + "/api/v1/export?format=csv&fields=name,type")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, "1", resp.Header.Get("X-Row-Count"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "operations_")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "name,type\nGetUser,query\n", buf.String())

	for _, query := range []string{"format=pdf", "dataset=traces", "limit=-1", "fields=bogus"} {
		resp, _ := do(t, srv, http.MethodGet, "/export?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"empty operation", http.MethodPost, "/operations", map[string]string{"query": "  "}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/operations", "not an object", http.StatusBadRequest},
		{"unknown data source", http.MethodPut, "/selection/datasource", map[string]string{"kind": "redis"}, http.StatusBadRequest},
		{"unknown sample", http.MethodGet, "/samples/batch", nil, http.StatusBadRequest},
		{"unknown trace", http.MethodGet, "/operations/12345/trace", nil, http.StatusNotFound},
		{"bad trace id", http.MethodGet, "/operations/abc/trace", nil, http.StatusBadRequest},
		{"unknown subscription", http.MethodDelete, "/subscriptions/sub-9", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

type gateSleeper struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestExecuteConflictsWhileRunning(t *testing.T) {
	gate := &gateSleeper{entered: make(chan struct{}, 1), release: make(chan struct{})}
	srv, _, _ := newTestServer(t, simulator.Options{Sleeper: gate})

	done := make(chan int, 1)
	go func() {
		raw, _ := json.Marshal(map[string]string{"query": getUserQuery})
		resp, err := srv.Client().Post(srv.URL+"/api/v1/operations", "application/json", bytes.NewReader(raw))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	<-gate.entered
	resp, body := do(t, srv, http.MethodPost, "/operations", map[string]string{"query": getUserQuery})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, simulator.ErrOperationInFlight.Error(), body["error"])

	close(gate.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestExecuteSurvivesClientDisconnect(t *testing.T) {
	gate := &gateSleeper{entered: make(chan struct{}, 1), release: make(chan struct{})}
	srv, sim, _ := newTestServer(t, simulator.Options{Sleeper: gate})

	_, err := sim.SwitchOperation(models.KindMutation)
	require.NoError(t, err)
	sim.StartSubscription()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		raw, _ := json.Marshal(map[string]string{"query": "mutation CreatePost { createPost { id } }"})
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/v1/operations", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if resp, err := srv.Client().Do(req); err == nil {
			resp.Body.Close()
		}
	}()

	<-gate.entered
	cancel()
	<-done
	close(gate.release)

	require.Eventually(t, func() bool { return !sim.Running() }, 2*time.Second, 10*time.Millisecond)
	snap := sim.Snapshot()
	assert.Equal(t, models.StateSuccess, snap.Stage(models.StageResponse).State)
	assert.NotEqual(t, "-", snap.ResponseTime)
	assert.Len(t, sim.Feed(), 2, "subscription start plus mutation broadcast")
	assert.Equal(t, int64(1), sim.Stats().MutationCount)
}

func TestSelectionAndState(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})

	resp, body := do(t, srv, http.MethodPut, "/selection/operation", map[string]string{"kind": "mutation"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["sample"], "mutation CreatePost")

	resp, _ = do(t, srv, http.MethodPut, "/selection/resolver", map[string]string{"kind": "pipeline"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	selection := body["selection"].(map[string]interface{})
	assert.Equal(t, "mutation", selection["operation"])
	assert.Equal(t, "pipeline", selection["resolver"])
	assert.Equal(t, "Pipeline", body["resolver_name"])

	stages := body["stages"].([]interface{})
	require.Len(t, stages, 4)
	assert.Equal(t, "Ready", stages[0].(map[string]interface{})["status"])
}

func TestSubscriptionEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})

	resp, body := do(t, srv, http.MethodDelete, "/subscriptions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["stopped"])

	resp, body = do(t, srv, http.MethodPost, "/subscriptions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "sub-1", body["id"])
	do(t, srv, http.MethodPost, "/subscriptions", nil)

	_, body = do(t, srv, http.MethodPost, "/subscriptions/trigger", nil)
	assert.Equal(t, 2.0, body["delivered"])

	resp, body = do(t, srv, http.MethodDelete, "/subscriptions/sub-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"sub-1"}, body["active"])

	_, body = do(t, srv, http.MethodGet, "/feed", nil)
	assert.Equal(t, 5.0, body["count"])
}

func TestLogEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})
	do(t, srv, http.MethodPut, "/selection/datasource", map[string]string{"kind": "lambda"})

	_, body := do(t, srv, http.MethodGet, "/log", nil)
	assert.Equal(t, 1.0, body["count"])

	resp, body := do(t, srv, http.MethodDelete, "/log", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := body["entries"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "Log cleared. Ready for new operations...", entries[0].(map[string]interface{})["message"])
}

func TestTraceEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})

	_, body := do(t, srv, http.MethodPost, "/operations", map[string]string{"query": getUserQuery})
	op := body["result"].(map[string]interface{})["operation"].(map[string]interface{})
	id := int64(op["id"].(float64))

	resp, trace := do(t, srv, http.MethodGet, "/operations/"+jsonNumber(id)+"/trace", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", trace["outcome"])
	assert.Len(t, trace["spans"], 7)

	resp, timeline := do(t, srv, http.MethodGet, "/operations/"+jsonNumber(id)+"/timeline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1085.0, timeline["duration"])
}

func TestMetricsEndpoints(t *testing.T) {
	srv, _, metrics := newTestServer(t, simulator.Options{})
	do(t, srv, http.MethodPost, "/operations", map[string]string{"query": getUserQuery})

	require.Eventually(t, func() bool {
		return metrics.Counter(monitoring.MetricOperations, "kind", "query", "outcome", "success") == 1
	}, time.Second, 10*time.Millisecond)

	resp, err := srv.Client().Get(srv.URL + "/api/v1/metrics/prometheus")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `appsync_sim_operations_total{kind="query",outcome="success"} 1`)

	resp2, body := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.NotEmpty(t, body["metrics"])

	resp2, body = do(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSampleEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{})

	resp, body := do(t, srv, http.MethodGet, "/samples/subscription", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.KindSubscription), body["kind"])
	assert.Contains(t, body["sample"], "OnCreatePost")
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}

func TestFailureEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, simulator.Options{Random: flow.NewFixedRandom(0)})

	_, body := do(t, srv, http.MethodPost, "/operations", map[string]string{"query": getUserQuery})
	assert.Equal(t, "failed", body["result"].(map[string]interface{})["outcome"])

	require.Eventually(t, func() bool {
		_, body := do(t, srv, http.MethodGet, "/failures", nil)
		return body["total"] == 1.0
	}, time.Second, 10*time.Millisecond)

	_, body = do(t, srv, http.MethodGet, "/failures", nil)
	group := body["failures"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Authentication", group["pattern"])
	assert.Equal(t, 1.0, group["count"])

	resp, _ := do(t, srv, http.MethodDelete, "/failures", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = do(t, srv, http.MethodGet, "/failures", nil)
	assert.Equal(t, 0.0, body["total"])
}
