package simulator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/appsync-flow-simulator/internal/flow"
	"github.com/your-username/appsync-flow-simulator/internal/mockdata"
	"github.com/your-username/appsync-flow-simulator/internal/models"
)

const getUserQuery = `query GetUser { getUser(id:"123"){ id name email posts { id title } } }`

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestSimulator(draws ...float64) (*Simulator, *fakeClock) {
	clock := newFakeClock()
	sim := New(Options{
		Random:  flow.NewFixedRandom(draws...),
		Sleeper: flow.NoDelay{},
		Clock:   clock.now,
	})
	return sim, clock
}

type blockingSleeper struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSleeper() *blockingSleeper {
	return &blockingSleeper{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func messages(entries []models.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

func feedTexts(feed []models.FeedMessage) []string {
	out := make([]string, 0, len(feed))
	for _, m := range feed {
		out = append(out, m.Message)
	}
	return out
}

func TestNewSimulatorDefaults(t *testing.T) {
	sim, _ := newTestSimulator()
	snap := sim.Snapshot()

	assert.Equal(t, models.Selection{
		Operation:  models.KindQuery,
		DataSource: models.SourceDynamoDB,
		Resolver:   models.ResolverVTL,
	}, snap.Selection)
	assert.Equal(t, models.Stats{}, snap.Stats)
	assert.Equal(t, "Ready", snap.Stage(models.StageClient).Status)
	assert.Equal(t, "Waiting", snap.Stage(models.StageAppSync).Status)
	assert.Equal(t, "Idle", snap.Stage(models.StageDataSource).Status)
	assert.Equal(t, "-", snap.Stage(models.StageResponse).Status)
	assert.Equal(t, "-", snap.Detail(models.DetailCache).Value)
	assert.Equal(t, "-", snap.ResponseTime)
	assert.Equal(t, "DynamoDB", snap.DataSourceName)
	assert.Equal(t, "VTL (Velocity)", snap.ResolverName)
	assert.False(t, snap.Running)
}

func TestExecuteGetUserEndToEnd(t *testing.T) {
	sim, _ := newTestSimulator(0.5)

	res, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, res.Outcome)
	assert.Equal(t, mockdata.Generate("GetUser"), res.Data)
	assert.Equal(t, "60ms", res.ResponseTime)

	snap := sim.Snapshot()
	assert.Equal(t, models.Stats{TotalOperations: 1, QueryCount: 1}, snap.Stats)
	assert.Equal(t, "Response Sent", snap.Stage(models.StageResponse).Status)
	assert.Equal(t, models.StateSuccess, snap.Stage(models.StageDataSource).State)
	assert.Equal(t, "Passed", snap.Detail(models.DetailAuth).Value)
	assert.Equal(t, "VTL", snap.Detail(models.DetailResolver).Value)
	assert.Equal(t, "Miss", snap.Detail(models.DetailCache).Value)
	assert.Equal(t, "60ms", snap.ResponseTime)
	assert.Equal(t, 1, snap.HistorySize)

	logs := messages(snap.Log)
	assert.Equal(t, "Executing QUERY: GetUser", logs[0])
	assert.Equal(t, "Operation completed successfully in 60ms", logs[len(logs)-1])

	history := sim.History()
	require.Len(t, history, 1)
	assert.Equal(t, "GetUser", history[0].Name)
	assert.Equal(t, models.SourceDynamoDB, history[0].DataSource)
	assert.Equal(t, history[0].Timestamp.UnixMilli(), history[0].ID)
}

func TestExecuteIncrementsCountersByKind(t *testing.T) {
	sim, _ := newTestSimulator(0.0) // every attempt fails authentication

	_, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)
	_, err = sim.SwitchOperation(models.KindMutation)
	require.NoError(t, err)
	_, err = sim.Execute(context.Background(), "mutation CreatePost { createPost { id } }")
	require.NoError(t, err)

	assert.Equal(t, models.Stats{TotalOperations: 2, QueryCount: 1, MutationCount: 1}, sim.Stats())
}

func TestExecuteRejectsBlankOperation(t *testing.T) {
	sim, _ := newTestSimulator()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := sim.Execute(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyOperation)
	}
	assert.Equal(t, models.Stats{}, sim.Stats())
	assert.Empty(t, sim.History())
}

func TestExecuteCachedQuerySkipsDataSource(t *testing.T) {
	sim, clock := newTestSimulator(0.5)

	_, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)

	clock.advance(time.Minute)
	res, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeCacheHit, res.Outcome)
	assert.False(t, res.DataSourceInvoked)
	assert.Equal(t, mockdata.Generate("GetUser"), res.Data)

	snap := sim.Snapshot()
	assert.Equal(t, "Skipped", snap.Stage(models.StageDataSource).Status)
	assert.Equal(t, "Cached Response", snap.Stage(models.StageResponse).Status)
	assert.Equal(t, "~5ms", snap.ResponseTime)
	assert.Equal(t, int64(2), snap.Stats.QueryCount)

	stats := sim.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestExecuteExpiredCacheInvokesDataSource(t *testing.T) {
	sim, clock := newTestSimulator(0.5)

	_, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)

	clock.advance(5 * time.Minute)
	res, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, res.Outcome)
	assert.True(t, res.DataSourceInvoked)
}

func TestMutationBroadcastsToActiveSubscriptions(t *testing.T) {
	sim, _ := newTestSimulator(0.5)
	sim.StartSubscription()
	sim.StartSubscription()

	_, err := sim.SwitchOperation(models.KindMutation)
	require.NoError(t, err)
	_, err = sim.Execute(context.Background(), "mutation CreatePost { createPost { id } }")
	require.NoError(t, err)

	feed := feedTexts(sim.Feed())
	assert.Contains(t, feed, "[sub-1] Mutation CreatePost triggered update")
	assert.Contains(t, feed, "[sub-2] Mutation CreatePost triggered update")
	assert.Len(t, feed, 4)
}

func TestFailedMutationStillBroadcasts(t *testing.T) {
	sim, _ := newTestSimulator(0.0)
	sim.StartSubscription()

	_, err := sim.SwitchOperation(models.KindMutation)
	require.NoError(t, err)
	res, err := sim.Execute(context.Background(), "mutation CreatePost { createPost { id } }")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeFailed, res.Outcome)

	assert.Contains(t, feedTexts(sim.Feed()), "[sub-1] Mutation CreatePost triggered update")
}

func TestSubscriptionLifecycle(t *testing.T) {
	sim, _ := newTestSimulator()

	assert.Equal(t, "sub-1", sim.StartSubscription())
	assert.Equal(t, "sub-2", sim.StartSubscription())
	assert.Equal(t, int64(2), sim.Stats().SubscriptionCount)

	id, ok := sim.StopSubscription()
	require.True(t, ok)
	assert.Equal(t, "sub-1", id)
	assert.Equal(t, []string{"sub-2"}, sim.ActiveSubscriptions())
	assert.Equal(t, int64(1), sim.Stats().SubscriptionCount)

	assert.Equal(t, 1, sim.TriggerUpdate())
	last := sim.Feed()[len(sim.Feed())-1]
	assert.Equal(t, "[sub-2] New post created: Real-time Update", last.Message)
	assert.True(t, last.New)

	require.NoError(t, sim.StopSubscriptionID("sub-2"))
	assert.ErrorIs(t, sim.StopSubscriptionID("sub-2"), ErrSubscriptionNotFound)
	assert.Equal(t, "sub-3", sim.StartSubscription())
}

func TestStopWithoutSubscriptionsIsNoop(t *testing.T) {
	sim, _ := newTestSimulator()
	before := sim.Stats()

	_, ok := sim.StopSubscription()
	assert.False(t, ok)
	assert.Equal(t, before, sim.Stats())
	assert.Empty(t, sim.Feed())
	assert.Zero(t, sim.TriggerUpdate())

	logs := messages(sim.Log())
	assert.Equal(t, []string{"No active subscriptions to stop", "No active subscriptions to trigger"}, logs)
}

func TestActivityLogIsBounded(t *testing.T) {
	sim, _ := newTestSimulator()

	for i := 0; i < 150; i++ {
		require.NoError(t, sim.SelectResolver(models.ResolverPipeline))
	}
	assert.Len(t, sim.Log(), 100)

	sim.ClearLog()
	assert.Equal(t, []string{"Log cleared. Ready for new operations..."}, messages(sim.Log()))
}

func TestSelectionsRejectUnknownKinds(t *testing.T) {
	sim, _ := newTestSimulator()

	_, err := sim.SwitchOperation("batch")
	assert.Error(t, err)
	assert.Error(t, sim.SelectDataSource("redis"))
	assert.Error(t, sim.SelectResolver("cobol"))

	sample, err := sim.SwitchOperation(models.KindSubscription)
	require.NoError(t, err)
	assert.Contains(t, sample, "subscription OnCreatePost")

	require.NoError(t, sim.SelectDataSource(models.SourceHTTP))
	require.NoError(t, sim.SelectResolver(models.ResolverDirect))
	assert.Equal(t, models.Selection{
		Operation:  models.KindSubscription,
		DataSource: models.SourceHTTP,
		Resolver:   models.ResolverDirect,
	}, sim.Snapshot().Selection)
	assert.Equal(t, []string{
		"Switched to SUBSCRIPTION operation",
		"Selected HTTP Endpoint data source",
		"Selected Direct Lambda resolver",
	}, messages(sim.Log()))
}

func TestExecuteRejectsConcurrentOperation(t *testing.T) {
	sleeper := newBlockingSleeper()
	sim := New(Options{Random: flow.NewFixedRandom(0.5), Sleeper: sleeper})

	done := make(chan error, 1)
	go func() {
		_, err := sim.Execute(context.Background(), getUserQuery)
		done <- err
	}()

	<-sleeper.entered
	assert.True(t, sim.Running())
	_, err := sim.Execute(context.Background(), getUserQuery)
	assert.ErrorIs(t, err, ErrOperationInFlight)

	close(sleeper.release)
	require.NoError(t, <-done)
	assert.False(t, sim.Running())
	assert.Equal(t, int64(1), sim.Stats().TotalOperations)
}

func TestExecuteCancelled(t *testing.T) {
	sleeper := newBlockingSleeper()
	sim := New(Options{Random: flow.NewFixedRandom(0.5), Sleeper: sleeper})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := sim.Execute(ctx, getUserQuery)
		done <- err
	}()

	<-sleeper.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, sim.Running())
}

func TestSimulatorsAreIndependent(t *testing.T) {
	a, _ := newTestSimulator(0.5)
	b, _ := newTestSimulator(0.5)

	_, err := a.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)
	a.StartSubscription()

	assert.Equal(t, models.Stats{}, b.Stats())
	assert.Empty(t, b.ActiveSubscriptions())
	assert.Zero(t, b.CacheStats().Size)
	assert.Equal(t, "sub-1", b.StartSubscription())
}

func TestHistoryLimit(t *testing.T) {
	clock := newFakeClock()
	sim := New(Options{
		Random:       flow.NewFixedRandom(0.0),
		Sleeper:      flow.NoDelay{},
		Clock:        clock.now,
		HistoryLimit: 3,
	})

	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		_, err := sim.Execute(context.Background(), fmt.Sprintf("query Q%d { q }", i))
		require.NoError(t, err)
	}
	history := sim.History()
	require.Len(t, history, 3)
	assert.Equal(t, "Q2", history[0].Name)
	assert.Equal(t, int64(5), sim.Stats().TotalOperations)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	sim, _ := newTestSimulator(0.5)
	events, cancel := sim.Subscribe(0)
	defer cancel()

	_, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)

	var types []models.EventType
	for len(events) > 0 {
		e := <-events
		assert.False(t, e.Time.IsZero())
		types = append(types, e.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, models.EventReset, types[0])
	assert.Equal(t, models.EventCompleted, types[len(types)-1])
	assert.Contains(t, types, models.EventStage)
	assert.Contains(t, types, models.EventDetail)
	assert.Contains(t, types, models.EventStats)
}

func TestTracesAreRecorded(t *testing.T) {
	sim, _ := newTestSimulator(0.5)

	res, err := sim.Execute(context.Background(), getUserQuery)
	require.NoError(t, err)

	trace, err := sim.Traces().GetTrace(res.Operation.ID)
	require.NoError(t, err)
	assert.Equal(t, res.TraceID, trace.TraceID)
}
