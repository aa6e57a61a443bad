package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/your-username/appsync-flow-simulator/internal/export"
	"github.com/your-username/appsync-flow-simulator/internal/failures"
	"github.com/your-username/appsync-flow-simulator/internal/monitoring"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
	"github.com/your-username/appsync-flow-simulator/internal/websocket"
)

// Deps are the components served by the router
type Deps struct {
	Simulator      *simulator.Simulator
	Hub            *websocket.Hub
	Metrics        *monitoring.MetricsCollector
	Health         *monitoring.HealthMonitor
	Alerts         *monitoring.AlertManager
	Failures       *failures.Detector
	AllowedOrigins []string
	// RequestTimeout bounds every request except executions
	RequestTimeout time.Duration
	// BaseContext outlives requests; executions run on it so a client
	// disconnect never leaves an operation half-way through the pipeline
	BaseContext context.Context
}

// NewRouter builds the HTTP surface of the simulator under /api/v1
func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	if d.Metrics == nil {
		d.Metrics = monitoring.NewMetricsCollector()
	}
	if d.Health == nil {
		d.Health = monitoring.NewHealthMonitor("dev")
	}
	if d.Alerts == nil {
		d.Alerts = monitoring.NewAlertManager(d.Metrics)
	}
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	if d.Failures == nil {
		d.Failures = failures.NewDetector()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition", "X-Row-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sim := d.Simulator
	traces := NewTraceHandler(sim.Traces())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", d.Health.HTTPHandler())
		r.Get("/health/live", d.Health.LivenessHandler())
		if d.Hub != nil {
			r.HandleFunc("/ws", websocket.HandleWebSocket(d.Hub))
		}

		// Executions block for the simulated duration and are not bounded by
		// the request timeout
		r.Route("/operations", func(r chi.Router) {
			r.Post("/", ExecuteOperation(d.BaseContext, sim))
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(d.RequestTimeout))
				r.Get("/", ListOperations(sim))
				r.Get("/{id}/trace", traces.GetTrace)
				r.Get("/{id}/timeline", traces.GetTraceTimeline)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(d.RequestTimeout))

			r.Get("/state", GetState(sim))
			r.Get("/samples/{kind}", GetSample)

			r.Route("/selection", func(r chi.Router) {
				r.Put("/operation", SwitchOperation(sim))
				r.Put("/datasource", SelectDataSource(sim))
				r.Put("/resolver", SelectResolver(sim))
			})

			r.Get("/traces", traces.GetTraces)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", StartSubscription(sim))
				r.Delete("/", StopSubscription(sim))
				r.Post("/trigger", TriggerUpdate(sim))
				r.Delete("/{id}", StopSubscriptionID(sim))
			})

			r.Get("/feed", GetFeed(sim))
			r.Get("/log", GetLog(sim))
			r.Delete("/log", ClearLog(sim))
			r.Get("/export", ExportData(export.NewExporter(sim)))

			r.Get("/metrics", GetMetrics(d.Metrics))
			r.Get("/metrics/prometheus", PrometheusMetrics(monitoring.NewPrometheusExporter(d.Metrics)))
			r.Get("/alerts", GetAlerts(d.Alerts))
			r.Get("/alerts/active", GetActiveAlerts(d.Alerts))
			r.Get("/failures", GetFailures(d.Failures))
			r.Delete("/failures", ResetFailures(d.Failures))
		})
	})

	return r
}
