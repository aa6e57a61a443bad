// Package simulator owns the state of one gateway simulation: counters,
// editor selections, subscriptions, response cache, history and the activity
// log. State changes are published as events for rendering layers.
package simulator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/activity"
	"github.com/your-username/appsync-flow-simulator/internal/auth"
	"github.com/your-username/appsync-flow-simulator/internal/cache"
	"github.com/your-username/appsync-flow-simulator/internal/flow"
	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/operation"
	"github.com/your-username/appsync-flow-simulator/internal/subscription"
	"github.com/your-username/appsync-flow-simulator/internal/tracing"
)

var (
	// ErrEmptyOperation is returned when the submitted text is blank
	ErrEmptyOperation = errors.New("please enter a GraphQL operation")
	// ErrOperationInFlight is returned when another operation is still running
	ErrOperationInFlight = errors.New("an operation is already executing")
	// ErrSubscriptionNotFound is returned when stopping an unknown subscription
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Options configures a Simulator. Zero values get defaults.
type Options struct {
	Profile        *flow.Profile
	Random         flow.Random
	Sleeper        flow.Sleeper
	Clock          func() time.Time
	CacheTTL       time.Duration
	FeedCapacity   int
	LogCapacity    int
	HistoryLimit   int
	TraceRetention int
	JWTSecret      string
}

type Simulator struct {
	mu           sync.RWMutex
	running      atomic.Bool
	stats        models.Stats
	selection    models.Selection
	history      []models.Operation
	historyLimit int
	stages       map[models.StageName]models.StageStatus
	details      map[models.DetailField]models.Detail
	responseTime string

	cache  *cache.StatsCache
	subs   *subscription.Registry
	log    *activity.Log
	traces *tracing.TraceManager
	runner *flow.Runner
	bus    *bus
	now    func() time.Time
}

// New creates an independent simulator instance
func New(opts Options) *Simulator {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	mem := cache.NewMemoryCache(opts.CacheTTL).WithClock(now)
	s := &Simulator{
		selection: models.Selection{
			Operation:  models.KindQuery,
			DataSource: models.SourceDynamoDB,
			Resolver:   models.ResolverVTL,
		},
		historyLimit: opts.HistoryLimit,
		cache:        cache.NewStatsCache(mem),
		subs:         subscription.NewRegistry(opts.FeedCapacity).WithClock(now),
		log:          activity.New(opts.LogCapacity).WithClock(now),
		traces:       tracing.NewTraceManager(opts.TraceRetention),
		bus:          newBus(),
		now:          now,
	}
	s.runner = flow.NewRunner(flow.Config{
		Profile:    opts.Profile,
		Random:     opts.Random,
		Sleeper:    opts.Sleeper,
		Cache:      s.cache,
		Authorizer: auth.NewAuthorizer(opts.JWTSecret),
		Traces:     s.traces,
		Clock:      now,
	})
	s.resetStagesLocked()
	return s
}

// Subscribe registers a rendering layer. The returned function unsubscribes
// and closes the channel.
func (s *Simulator) Subscribe(buffer int) (<-chan models.Event, func()) {
	return s.bus.subscribe(buffer)
}

// Observe calls fn with every event, in order, on the goroutine that
// produced it. fn must not call back into the simulator. The returned
// function removes the observer.
func (s *Simulator) Observe(fn func(models.Event)) func() {
	return s.bus.observe(fn)
}

// SwitchOperation changes the operation kind and returns its sample text
func (s *Simulator) SwitchOperation(kind models.OperationKind) (string, error) {
	kind, err := models.ParseOperationKind(string(kind))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.selection.Operation = kind
	sel := s.selection
	s.mu.Unlock()

	s.publish(models.Event{Type: models.EventSelection, Selection: &sel})
	s.logf(models.SeverityInfo, "Switched to "+strings.ToUpper(string(kind))+" operation")
	return operation.Sample(kind), nil
}

// SelectDataSource changes the data source used by subsequent operations
func (s *Simulator) SelectDataSource(kind models.DataSourceKind) error {
	kind, err := models.ParseDataSourceKind(string(kind))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.selection.DataSource = kind
	sel := s.selection
	s.mu.Unlock()

	s.publish(models.Event{Type: models.EventSelection, Selection: &sel})
	s.logf(models.SeverityInfo, "Selected "+kind.DisplayName()+" data source")
	return nil
}

// SelectResolver changes the resolver used by subsequent operations
func (s *Simulator) SelectResolver(kind models.ResolverKind) error {
	kind, err := models.ParseResolverKind(string(kind))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.selection.Resolver = kind
	sel := s.selection
	s.mu.Unlock()

	s.publish(models.Event{Type: models.EventSelection, Selection: &sel})
	s.logf(models.SeverityInfo, "Selected "+kind.DisplayName()+" resolver")
	return nil
}

// Execute submits text under the current selection and runs it to a terminal state
func (s *Simulator) Execute(ctx context.Context, text string) (*flow.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyOperation
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrOperationInFlight
	}
	defer s.running.Store(false)

	now := s.now()
	s.mu.Lock()
	op := models.Operation{
		ID:         now.UnixMilli(),
		Kind:       s.selection.Operation,
		Name:       operation.ExtractName(text),
		Query:      text,
		DataSource: s.selection.DataSource,
		Resolver:   s.selection.Resolver,
		Timestamp:  now,
	}
	s.stats.TotalOperations++
	switch op.Kind {
	case models.KindQuery:
		s.stats.QueryCount++
	case models.KindMutation:
		s.stats.MutationCount++
	case models.KindSubscription:
		// resynced to the live set size on the next start or stop
		s.stats.SubscriptionCount++
	}
	s.history = append(s.history, op)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
	s.resetStagesLocked()
	s.mu.Unlock()

	s.publish(models.Event{Type: models.EventReset})
	s.logf(models.SeverityInfo, "Executing "+strings.ToUpper(string(op.Kind))+": "+op.Name)

	res, err := s.runner.Run(ctx, op, flow.EmitterFunc(s.apply))
	if err != nil {
		log.Warn().Err(err).Int64("operation_id", op.ID).Msg("Operation aborted")
		return nil, err
	}

	s.publishStats()

	if op.Kind == models.KindMutation {
		for _, msg := range s.subs.BroadcastMutation(op.Name) {
			m := msg
			s.publish(models.Event{Type: models.EventFeed, Feed: &m})
		}
	}

	s.publish(models.Event{
		Type: models.EventCompleted,
		Completion: &models.Completion{
			OperationID:  op.ID,
			Kind:         op.Kind,
			Name:         op.Name,
			DataSource:   op.DataSource,
			Resolver:     op.Resolver,
			Outcome:      res.Outcome,
			Reason:       res.Reason,
			Latency:      res.Latency,
			ResponseTime: res.ResponseTime,
		},
	})
	return res, nil
}

// StartSubscription begins listening with a new sequential id
func (s *Simulator) StartSubscription() string {
	id, msg := s.subs.Start()
	s.syncSubscriptionCount()

	s.logf(models.SeveritySuccess, "Started subscription: "+id)
	s.publish(models.Event{Type: models.EventFeed, Feed: &msg})
	s.publishStats()
	return id
}

// StopSubscription stops the oldest active subscription. It reports false,
// leaving every counter unchanged, when nothing is active.
func (s *Simulator) StopSubscription() (string, bool) {
	id, msg, ok := s.subs.Stop()
	if !ok {
		s.logf(models.SeverityWarning, "No active subscriptions to stop")
		return "", false
	}
	s.afterStop(id, msg)
	return id, true
}

// StopSubscriptionID stops a specific subscription
func (s *Simulator) StopSubscriptionID(id string) error {
	msg, ok := s.subs.StopID(id)
	if !ok {
		return ErrSubscriptionNotFound
	}
	s.afterStop(id, msg)
	return nil
}

func (s *Simulator) afterStop(id string, msg models.FeedMessage) {
	s.syncSubscriptionCount()
	s.logf(models.SeverityInfo, "Stopped subscription: "+id)
	s.publish(models.Event{Type: models.EventFeed, Feed: &msg})
	s.publishStats()
}

// TriggerUpdate pushes a synthetic update to every active subscription and
// returns the number of messages delivered
func (s *Simulator) TriggerUpdate() int {
	msgs := s.subs.Trigger()
	if len(msgs) == 0 {
		s.logf(models.SeverityWarning, "No active subscriptions to trigger")
		return 0
	}
	for _, msg := range msgs {
		m := msg
		s.publish(models.Event{Type: models.EventFeed, Feed: &m})
	}
	s.logf(models.SeveritySuccess, "Triggered subscription updates for all active subscriptions")
	return len(msgs)
}

// ClearLog empties the activity log
func (s *Simulator) ClearLog() {
	entry := s.log.Clear()
	s.publish(models.Event{Type: models.EventLogCleared, Log: &entry})
}

// Stats returns the current counters
func (s *Simulator) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// History returns the submitted operations, oldest first
func (s *Simulator) History() []models.Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Operation, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Simulator) Log() []models.LogEntry { return s.log.Entries() }

func (s *Simulator) Feed() []models.FeedMessage { return s.subs.Feed() }

func (s *Simulator) ActiveSubscriptions() []string { return s.subs.Active() }

func (s *Simulator) CacheStats() cache.CacheStats { return s.cache.GetStats() }

func (s *Simulator) Traces() *tracing.TraceManager { return s.traces }

func (s *Simulator) Profile() flow.Profile { return s.runner.Profile() }

// Running reports whether an operation is executing
func (s *Simulator) Running() bool { return s.running.Load() }

// apply folds a pipeline event into the display state and republishes it
func (s *Simulator) apply(e models.Event) {
	switch e.Type {
	case models.EventStage:
		s.mu.Lock()
		s.stages[e.Stage.Stage] = *e.Stage
		s.mu.Unlock()
	case models.EventDetail:
		s.mu.Lock()
		s.details[e.Detail.Field] = *e.Detail
		s.mu.Unlock()
	case models.EventResponseTime:
		s.mu.Lock()
		s.responseTime = e.ResponseTime
		s.mu.Unlock()
	case models.EventLog:
		entry := s.log.Add(e.Log.Severity, e.Log.Message)
		e.Log = &entry
	}
	s.publish(e)
}

func (s *Simulator) logf(severity models.Severity, message string) {
	entry := s.log.Add(severity, message)
	s.publish(models.Event{Type: models.EventLog, Log: &entry})
}

func (s *Simulator) syncSubscriptionCount() {
	n := int64(s.subs.Count())
	s.mu.Lock()
	s.stats.SubscriptionCount = n
	s.mu.Unlock()
}

func (s *Simulator) publishStats() {
	stats := s.Stats()
	s.publish(models.Event{Type: models.EventStats, Stats: &stats})
}

func (s *Simulator) publish(e models.Event) {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	s.bus.publish(e)
}

func (s *Simulator) resetStagesLocked() {
	s.stages = map[models.StageName]models.StageStatus{
		models.StageClient:     {Stage: models.StageClient, Status: "Ready"},
		models.StageAppSync:    {Stage: models.StageAppSync, Status: "Waiting"},
		models.StageDataSource: {Stage: models.StageDataSource, Status: "Idle"},
		models.StageResponse:   {Stage: models.StageResponse, Status: "-"},
	}
	s.details = make(map[models.DetailField]models.Detail, len(models.DetailFields))
	for _, f := range models.DetailFields {
		s.details[f] = models.Detail{Field: f, Value: "-"}
	}
	s.responseTime = "-"
}
