package monitoring

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// Watch folds simulator events into the collector until ctx is done or the
// channel closes.
func Watch(ctx context.Context, events <-chan models.Event, metrics *MetricsCollector) {
	started := make(map[models.StageName]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				log.Debug().Msg("Metrics watcher stopped: event stream closed")
				return
			}
			observe(e, metrics, started)
		}
	}
}

func observe(e models.Event, metrics *MetricsCollector, started map[models.StageName]time.Time) {
	switch e.Type {
	case models.EventReset:
		for k := range started {
			delete(started, k)
		}
		metrics.SetInFlight(true)
	case models.EventStage:
		switch e.Stage.State {
		case models.StateActive, models.StateProcessing:
			started[e.Stage.Stage] = e.Time
		case models.StateSuccess, models.StateError:
			if at, ok := started[e.Stage.Stage]; ok {
				metrics.RecordStage(e.Stage.Stage, e.Time.Sub(at))
				delete(started, e.Stage.Stage)
			}
		}
	case models.EventDetail:
		if e.Detail.Field != models.DetailCache {
			return
		}
		switch e.Detail.Value {
		case "Hit":
			metrics.RecordCacheLookup(true)
		case "Miss":
			metrics.RecordCacheLookup(false)
		}
	case models.EventFeed:
		metrics.RecordFeedMessage(e.Feed.New)
	case models.EventStats:
		metrics.SetActiveSubscriptions(e.Stats.SubscriptionCount)
	case models.EventCompleted:
		metrics.RecordOperation(*e.Completion)
		metrics.SetInFlight(false)
	}
}
