// Package flow runs a single operation through the simulated gateway pipeline:
// client send, validation, authentication, resolver, cache check, data source
// and response processing. Every step waits a simulated duration and reports
// its progress as events.
package flow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/auth"
	"github.com/your-username/appsync-flow-simulator/internal/cache"
	"github.com/your-username/appsync-flow-simulator/internal/mockdata"
	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/operation"
	"github.com/your-username/appsync-flow-simulator/internal/tracing"
)

// Failure reasons surfaced in the response stage
const (
	ReasonAuthentication = "Authentication Failed"
	ReasonResolver       = "Resolver Error"
	ReasonInternal       = "Internal Error"
)

// CachedResponseTime is the response time shown for cache hits
const CachedResponseTime = "~5ms"

// ErrDataSource is raised by a simulated data source failure
var ErrDataSource = errors.New("data source error")

// Emitter receives the events produced by a run
type Emitter interface {
	Emit(models.Event)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(models.Event)

func (f EmitterFunc) Emit(e models.Event) { f(e) }

// Result is the terminal state of a run
type Result struct {
	Operation         models.Operation `json:"operation"`
	Outcome           models.Outcome   `json:"outcome"`
	Reason            string           `json:"reason,omitempty"`
	Data              interface{}      `json:"data,omitempty"`
	Latency           time.Duration    `json:"latency_ns"`
	ResponseTime      string           `json:"response_time"`
	DataSourceInvoked bool             `json:"data_source_invoked"`
	TraceID           string           `json:"trace_id"`
}

// Config wires a Runner. Nil fields get working defaults.
type Config struct {
	Profile    *Profile
	Random     Random
	Sleeper    Sleeper
	Cache      cache.Cache
	Authorizer *auth.Authorizer
	Traces     *tracing.TraceManager
	Clock      func() time.Time
}

type Runner struct {
	profile Profile
	random  Random
	sleeper Sleeper
	cache   cache.Cache
	auth    *auth.Authorizer
	traces  *tracing.TraceManager
	now     func() time.Time
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		profile: DefaultProfile(),
		random:  cfg.Random,
		sleeper: cfg.Sleeper,
		cache:   cfg.Cache,
		auth:    cfg.Authorizer,
		traces:  cfg.Traces,
		now:     cfg.Clock,
	}
	if cfg.Profile != nil {
		r.profile = *cfg.Profile
	}
	if r.random == nil {
		r.random = NewRandom(0)
	}
	if r.sleeper == nil {
		r.sleeper = TimerSleeper{}
	}
	if r.cache == nil {
		r.cache = cache.NewMemoryCache(cache.DefaultTTL)
	}
	if r.auth == nil {
		r.auth = auth.NewAuthorizer("")
	}
	if r.traces == nil {
		r.traces = tracing.NewTraceManager(tracing.DefaultRetention)
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Profile returns the latency and failure table in use
func (r *Runner) Profile() Profile {
	return r.profile
}

// Run drives op through the pipeline. Modeled failures are reported in the
// Result; the returned error is non-nil only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context, op models.Operation, emit Emitter) (*Result, error) {
	if op.Name == "" {
		op.Name = operation.ExtractName(op.Query)
	}
	x := &execution{
		Runner: r,
		op:     op,
		emit:   emit,
		trace:  r.traces.Begin(op, r.now()),
	}

	res, err := x.process(ctx)
	if err != nil {
		r.traces.Finish(x.trace, models.OutcomeFailed, err.Error(), r.now())
		return nil, err
	}
	res.TraceID = x.trace.TraceID
	r.traces.Finish(x.trace, res.Outcome, res.Reason, r.now())
	return res, nil
}

type execution struct {
	*Runner
	op    models.Operation
	emit  Emitter
	trace *tracing.Trace
	span  *tracing.Span
}

func (x *execution) process(ctx context.Context) (*Result, error) {
	p := x.profile

	x.startSpan("send", models.StageClient)
	x.stage(models.StageClient, models.StateActive, "Sending Operation")
	if err := x.wait(ctx, p.ClientDelay); err != nil {
		return nil, err
	}

	x.stage(models.StageClient, models.StateSuccess, "Operation Sent")
	x.stage(models.StageAppSync, models.StateProcessing, "Validating")
	x.startSpan("validate", models.StageAppSync)
	if err := x.wait(ctx, p.ValidateDelay); err != nil {
		return nil, err
	}

	ok, err := x.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return x.fail(ReasonAuthentication), nil
	}

	ok, err = x.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return x.fail(ReasonResolver), nil
	}

	entry, hit, err := x.checkCache(ctx)
	if err != nil {
		return nil, err
	}
	if hit {
		return x.cacheHit(entry), nil
	}

	x.stage(models.StageAppSync, models.StateSuccess, "Validated")
	x.stage(models.StageDataSource, models.StateProcessing, "Executing")
	x.startSpan("datasource", models.StageDataSource)
	if err := x.wait(ctx, p.preDelay(x.op.DataSource)); err != nil {
		return nil, err
	}

	data, latency, err := x.executeDataSource(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Err(err).Int64("operation_id", x.op.ID).Msg("Data source execution failed")
		x.span.Fail(err.Error())
		return x.fail(ReasonInternal), nil
	}

	x.stage(models.StageDataSource, models.StateSuccess, "Completed")
	x.stage(models.StageResponse, models.StateProcessing, "Processing Response")
	x.startSpan("response", models.StageResponse)
	if err := x.wait(ctx, p.ResponseDelay); err != nil {
		return nil, err
	}

	x.cacheResponse(data)
	return x.succeed(data, latency), nil
}

func (x *execution) authenticate(ctx context.Context) (bool, error) {
	x.startSpan("authenticate", models.StageAppSync)
	if err := x.wait(ctx, x.profile.AuthDelay); err != nil {
		return false, err
	}

	allow := x.random.Float64() > x.profile.AuthFailureRate
	claims, err := x.auth.Authenticate(x.op, allow)
	if err != nil {
		x.span.Fail(err.Error())
		x.detail(models.DetailAuth, "Failed", models.ClassError)
		x.log(models.SeverityError, "Authentication failed: Invalid credentials")
		return false, nil
	}

	x.span.Set("subject", claims.Subject)
	x.detail(models.DetailAuth, "Passed", models.ClassSuccess)
	x.log(models.SeveritySuccess, "Authentication successful")
	return true, nil
}

func (x *execution) resolve(ctx context.Context) (bool, error) {
	x.startSpan("resolve", models.StageAppSync)
	x.span.Set("resolver", string(x.op.Resolver))
	if err := x.wait(ctx, x.profile.ResolverBaseDelay); err != nil {
		return false, err
	}
	if err := x.wait(ctx, x.profile.resolverLatency(x.op.Resolver)); err != nil {
		return false, err
	}

	name := strings.ToUpper(string(x.op.Resolver))
	if x.random.Float64() > x.profile.ResolverFailureRate {
		x.detail(models.DetailResolver, name, models.ClassSuccess)
		x.log(models.SeveritySuccess, name+" resolver executed successfully")
		return true, nil
	}

	x.span.Fail(ReasonResolver)
	x.detail(models.DetailResolver, "Error", models.ClassError)
	x.log(models.SeverityError, name+" resolver failed")
	return false, nil
}

func (x *execution) checkCache(ctx context.Context) (cache.Entry, bool, error) {
	x.startSpan("cache", models.StageAppSync)
	if err := x.wait(ctx, x.profile.CacheCheckDelay); err != nil {
		return cache.Entry{}, false, err
	}

	key, cacheable := operation.CacheKey(x.op.Kind, x.op.Query)
	if !cacheable {
		x.span.Status = tracing.StatusSkipped
		x.detail(models.DetailCache, "N/A", models.ClassNone)
		return cache.Entry{}, false, nil
	}

	x.span.Set("key", key)
	if entry, ok := x.cache.Get(key); ok {
		x.span.Set("hit", true)
		x.detail(models.DetailCache, "Hit", models.ClassSuccess)
		x.log(models.SeveritySuccess, "Cache hit: Returning cached response")
		return entry, true, nil
	}

	x.span.Set("hit", false)
	x.detail(models.DetailCache, "Miss", models.ClassWarning)
	x.log(models.SeverityInfo, "Cache miss: Proceeding to data source")
	return cache.Entry{}, false, nil
}

func (x *execution) executeDataSource(ctx context.Context) (interface{}, time.Duration, error) {
	ds, ok := x.profile.DataSources[x.op.DataSource]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown data source %q", ErrDataSource, x.op.DataSource)
	}

	spread := float64(ds.MaxLatency - ds.MinLatency)
	latency := time.Duration(x.random.Float64()*spread) + ds.MinLatency
	if err := x.wait(ctx, latency); err != nil {
		return nil, 0, err
	}

	if x.random.Float64() < ds.FailureRate {
		return nil, latency, ErrDataSource
	}

	data := mockdata.Generate(x.op.Name)
	x.span.Set("latency_ms", roundMillis(latency))
	x.log(models.SeveritySuccess, fmt.Sprintf("%s responded in %dms", strings.ToUpper(string(x.op.DataSource)), roundMillis(latency)))
	return data, latency, nil
}

func (x *execution) cacheResponse(data interface{}) {
	key, cacheable := operation.CacheKey(x.op.Kind, x.op.Query)
	if !cacheable {
		return
	}
	x.cache.Set(key, data)
	x.log(models.SeverityInfo, "Response cached for future queries")
}

func (x *execution) cacheHit(entry cache.Entry) *Result {
	x.stage(models.StageAppSync, models.StateSuccess, "Cache Hit")
	x.stage(models.StageDataSource, models.StateNone, "Skipped")
	x.stage(models.StageResponse, models.StateSuccess, "Cached Response")
	x.responseTime(CachedResponseTime)
	x.log(models.SeveritySuccess, "Operation completed with cached response ("+CachedResponseTime+")")

	return &Result{
		Operation:    x.op,
		Outcome:      models.OutcomeCacheHit,
		Data:         entry.Data,
		ResponseTime: CachedResponseTime,
	}
}

func (x *execution) succeed(data interface{}, latency time.Duration) *Result {
	rt := fmt.Sprintf("%dms", roundMillis(latency))
	x.stage(models.StageResponse, models.StateSuccess, "Response Sent")
	x.responseTime(rt)
	x.log(models.SeveritySuccess, "Operation completed successfully in "+rt)

	return &Result{
		Operation:         x.op,
		Outcome:           models.OutcomeSuccess,
		Data:              data,
		Latency:           latency,
		ResponseTime:      rt,
		DataSourceInvoked: true,
	}
}

func (x *execution) fail(reason string) *Result {
	x.stage(models.StageAppSync, models.StateError, "Failed")
	x.stage(models.StageDataSource, models.StateNone, "Skipped")
	x.stage(models.StageResponse, models.StateError, reason)
	x.log(models.SeverityError, "Operation failed: "+reason)

	return &Result{
		Operation:         x.op,
		Outcome:           models.OutcomeFailed,
		Reason:            reason,
		DataSourceInvoked: reason == ReasonInternal,
	}
}

func (x *execution) startSpan(name string, stage models.StageName) {
	x.span = x.trace.StartSpan(name, stage, x.now())
}

func (x *execution) wait(ctx context.Context, d time.Duration) error {
	x.span.Wait(d)
	return x.sleeper.Sleep(ctx, d)
}

func (x *execution) stage(stage models.StageName, state models.StageState, status string) {
	x.send(models.Event{
		Type:  models.EventStage,
		Stage: &models.StageStatus{Stage: stage, State: state, Status: status},
	})
}

func (x *execution) detail(field models.DetailField, value string, class models.DetailClass) {
	x.send(models.Event{
		Type:   models.EventDetail,
		Detail: &models.Detail{Field: field, Value: value, Class: class},
	})
}

func (x *execution) responseTime(rt string) {
	x.send(models.Event{Type: models.EventResponseTime, ResponseTime: rt})
}

func (x *execution) log(severity models.Severity, message string) {
	x.send(models.Event{
		Type: models.EventLog,
		Log:  &models.LogEntry{Severity: severity, Message: message},
	})
}

func (x *execution) send(e models.Event) {
	if x.emit == nil {
		return
	}
	e.Time = x.now()
	x.emit.Emit(e)
}

func roundMillis(d time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}
