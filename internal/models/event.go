package models

import (
	"time"
)

// StageName is one of the four pipeline boxes
type StageName string

const (
	StageClient     StageName = "client"
	StageAppSync    StageName = "appsync"
	StageDataSource StageName = "datasource"
	StageResponse   StageName = "response"
)

// Stages lists the pipeline boxes in display order
var Stages = []StageName{StageClient, StageAppSync, StageDataSource, StageResponse}

// StageState is the visual state of a stage. The empty state means neutral.
type StageState string

const (
	StateNone       StageState = ""
	StateActive     StageState = "active"
	StateProcessing StageState = "processing"
	StateSuccess    StageState = "success"
	StateError      StageState = "error"
)

type StageStatus struct {
	Stage  StageName  `json:"stage"`
	State  StageState `json:"state"`
	Status string     `json:"status"`
}

// DetailField is one of the per-attempt result fields
type DetailField string

const (
	DetailAuth     DetailField = "auth"
	DetailResolver DetailField = "resolver"
	DetailCache    DetailField = "cache"
)

var DetailFields = []DetailField{DetailAuth, DetailResolver, DetailCache}

// DetailClass is the visual class of a detail value
type DetailClass string

const (
	ClassNone    DetailClass = ""
	ClassSuccess DetailClass = "success"
	ClassWarning DetailClass = "warning"
	ClassError   DetailClass = "error"
)

type Detail struct {
	Field DetailField `json:"field"`
	Value string      `json:"value"`
	Class DetailClass `json:"class"`
}

// Outcome is the terminal result of an operation run
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeFailed   Outcome = "failed"
)

// Completion summarizes a finished operation
type Completion struct {
	OperationID  int64          `json:"operation_id"`
	Kind         OperationKind  `json:"kind"`
	Name         string         `json:"name"`
	DataSource   DataSourceKind `json:"data_source"`
	Resolver     ResolverKind   `json:"resolver"`
	Outcome      Outcome        `json:"outcome"`
	Reason       string         `json:"reason,omitempty"`
	Latency      time.Duration  `json:"latency_ns"`
	ResponseTime string         `json:"response_time"`
}

type EventType string

const (
	EventReset        EventType = "reset"
	EventStage        EventType = "stage"
	EventDetail       EventType = "detail"
	EventResponseTime EventType = "response_time"
	EventLog          EventType = "log"
	EventLogCleared   EventType = "log_cleared"
	EventFeed         EventType = "feed"
	EventStats        EventType = "stats"
	EventSelection    EventType = "selection"
	EventCompleted    EventType = "completed"
)

// Event is a single state change emitted by the simulator. Exactly one of the
// payload fields is set, matching Type.
type Event struct {
	Type         EventType    `json:"type"`
	Time         time.Time    `json:"time"`
	Stage        *StageStatus `json:"stage,omitempty"`
	Detail       *Detail      `json:"detail,omitempty"`
	ResponseTime string       `json:"response_time,omitempty"`
	Log          *LogEntry    `json:"log,omitempty"`
	Feed         *FeedMessage `json:"feed,omitempty"`
	Stats        *Stats       `json:"stats,omitempty"`
	Selection    *Selection   `json:"selection,omitempty"`
	Completion   *Completion  `json:"completion,omitempty"`
}
