package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/operation"
	"github.com/your-username/appsync-flow-simulator/internal/pagination"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
)

type selectionRequest struct {
	Kind string `json:"kind"`
}

type executeRequest struct {
	Query string `json:"query"`
}

// listings holds at most the history limit, so one page can carry all of it
var paginator = pagination.NewPaginator(100, 1000)

// paginate serves items one page at a time. The total count is reported as
// "count" alongside the page under key.
func paginate[T any](w http.ResponseWriter, r *http.Request, key string, items []T) {
	req, err := pagination.RequestFromQuery(r)
	if err == nil {
		var page pagination.Page[T]
		if page, err = pagination.Paginate(paginator, items, req); err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				key:               page.Items,
				"count":           page.TotalCount,
				"page_size":       page.PageSize,
				"has_more":        page.HasMore,
				"next_page_token": page.NextPageToken,
				"prev_page_token": page.PrevPageToken,
			})
			return
		}
	}
	writeError(w, r, fmt.Errorf("%w: %v", errInvalidPage, err))
}

// GetState returns everything a viewer needs to draw the pipeline
func GetState(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sim.Snapshot())
	}
}

// SwitchOperation selects the operation kind and returns its sample
func SwitchOperation(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		sample, err := sim.SwitchOperation(models.OperationKind(req.Kind))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"selection": sim.Snapshot().Selection,
			"sample":    sample,
		})
	}
}

// SelectDataSource selects the data source for subsequent operations
func SelectDataSource(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := sim.SelectDataSource(models.DataSourceKind(req.Kind)); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"selection": sim.Snapshot().Selection})
	}
}

// SelectResolver selects the resolver for subsequent operations
func SelectResolver(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := sim.SelectResolver(models.ResolverKind(req.Kind)); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"selection": sim.Snapshot().Selection})
	}
}

// ExecuteOperation runs the submitted text to a terminal state. The request
// blocks for the simulated duration.
func ExecuteOperation(base context.Context, sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		res, err := sim.Execute(base, req.Query)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"result": res,
			"stats":  sim.Stats(),
		})
	}
}

// ListOperations returns the submission history
func ListOperations(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paginate(w, r, "operations", sim.History())
	}
}

// StartSubscription begins a new listening subscription
func StartSubscription(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sim.StartSubscription()
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":     id,
			"active": sim.ActiveSubscriptions(),
		})
	}
}

// StopSubscription stops the oldest subscription; stopping with none active
// is not an error
func StopSubscription(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, stopped := sim.StopSubscription()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":      id,
			"stopped": stopped,
			"active":  sim.ActiveSubscriptions(),
		})
	}
}

// StopSubscriptionID stops the subscription named in the path
func StopSubscriptionID(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := sim.StopSubscriptionID(id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":      id,
			"stopped": true,
			"active":  sim.ActiveSubscriptions(),
		})
	}
}

// TriggerUpdate pushes a synthetic update to every active subscription
func TriggerUpdate(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delivered := sim.TriggerUpdate()
		writeJSON(w, http.StatusOK, map[string]interface{}{"delivered": delivered})
	}
}

// GetFeed returns the subscription feed, oldest first
func GetFeed(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feed := sim.Feed()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"messages": feed,
			"count":    len(feed),
		})
	}
}

// GetLog returns the activity log, oldest first
func GetLog(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paginate(w, r, "entries", sim.Log())
	}
}

// ClearLog empties the activity log
func ClearLog(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sim.ClearLog()
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": sim.Log()})
	}
}

// GetSample returns the example operation for a kind
func GetSample(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseOperationKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"kind":   string(kind),
		"sample": operation.Sample(kind),
	})
}
