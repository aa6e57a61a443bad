package simulator

import (
	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// Snapshot is everything a display needs to redraw itself
type Snapshot struct {
	Stats               models.Stats         `json:"stats"`
	Selection           models.Selection     `json:"selection"`
	Stages              []models.StageStatus `json:"stages"`
	Details             []models.Detail      `json:"details"`
	ResponseTime        string               `json:"response_time"`
	Running             bool                 `json:"running"`
	ActiveSubscriptions []string             `json:"active_subscriptions"`
	HistorySize         int                  `json:"history_size"`
	Log                 []models.LogEntry    `json:"log"`
	Feed                []models.FeedMessage `json:"feed"`
	DataSourceName      string               `json:"data_source_name"`
	ResolverName        string               `json:"resolver_name"`
}

// Snapshot captures the current display state
func (s *Simulator) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Stats:        s.stats,
		Selection:    s.selection,
		Stages:       make([]models.StageStatus, 0, len(models.Stages)),
		Details:      make([]models.Detail, 0, len(models.DetailFields)),
		ResponseTime: s.responseTime,
		HistorySize:  len(s.history),
	}
	for _, name := range models.Stages {
		snap.Stages = append(snap.Stages, s.stages[name])
	}
	for _, f := range models.DetailFields {
		snap.Details = append(snap.Details, s.details[f])
	}
	s.mu.RUnlock()

	snap.Running = s.Running()
	snap.ActiveSubscriptions = s.subs.Active()
	snap.Log = s.log.Entries()
	snap.Feed = s.subs.Feed()
	snap.DataSourceName = snap.Selection.DataSource.DisplayName()
	snap.ResolverName = snap.Selection.Resolver.DisplayName()
	return snap
}

// Stage returns the current descriptor of one pipeline stage
func (snap Snapshot) Stage(name models.StageName) models.StageStatus {
	for _, st := range snap.Stages {
		if st.Stage == name {
			return st
		}
	}
	return models.StageStatus{Stage: name}
}

// Detail returns the current value of one detail field
func (snap Snapshot) Detail(field models.DetailField) models.Detail {
	for _, d := range snap.Details {
		if d.Field == field {
			return d
		}
	}
	return models.Detail{Field: field}
}
