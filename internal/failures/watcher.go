package failures

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

const (
	pruneInterval = 10 * time.Minute
	retention     = 24 * time.Hour
)

// Watch feeds failed completions from events into the detector until ctx is
// done or events is closed
func Watch(ctx context.Context, events <-chan models.Event, d *Detector) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Prune(retention); n > 0 {
				log.Debug().Int("groups", n).Msg("Pruned stale failure groups")
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != models.EventCompleted || e.Completion == nil {
				continue
			}
			if keys := d.Process(*e.Completion, e.Time); len(keys) > 0 {
				log.Debug().
					Int64("operation_id", e.Completion.OperationID).
					Strs("groups", keys).
					Msg("Recorded operation failure")
			}
		}
	}
}
