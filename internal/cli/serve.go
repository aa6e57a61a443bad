package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/your-username/appsync-flow-simulator/internal/api"
	"github.com/your-username/appsync-flow-simulator/internal/config"
	"github.com/your-username/appsync-flow-simulator/internal/failures"
	"github.com/your-username/appsync-flow-simulator/internal/monitoring"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
	"github.com/your-username/appsync-flow-simulator/internal/websocket"
)

const alertInterval = 30 * time.Second

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().Str("version", Version).Msg("Starting AppSync flow simulator")

	opts, err := simulatorOptions(cfg, false)
	if err != nil {
		return err
	}
	sim := simulator.New(opts)

	metrics := monitoring.NewMetricsCollector()
	hub := websocket.NewHub().OnConnectionsChanged(metrics.SetWebSocketConnections)

	health := monitoring.NewHealthMonitor(Version)
	health.RegisterChecker(monitoring.NewSimulatorHealthChecker(sim))
	health.RegisterChecker(monitoring.NewOperationsHealthChecker(metrics, 20, 0.5))
	health.RegisterChecker(monitoring.NewConnectionsHealthChecker(hub))

	alerts := monitoring.NewAlertManager(metrics)
	alerts.AddListener(monitoring.NewLogAlertListener())
	detector := failures.NewDetector()

	// Separate subscriptions so a slow viewer never starves the metrics
	metricEvents, cancelMetrics := sim.Subscribe(0)
	defer cancelMetrics()
	failureEvents, cancelFailures := sim.Subscribe(0)
	defer cancelFailures()
	viewerEvents, cancelViewers := sim.Subscribe(1024)
	defer cancelViewers()

	go hub.Run(ctx)
	go hub.Forward(ctx, viewerEvents)
	go monitoring.Watch(ctx, metricEvents, metrics)
	go failures.Watch(ctx, failureEvents, detector)
	go checkAlerts(ctx, alerts)

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.NewRouter(api.Deps{
			Simulator:      sim,
			Hub:            hub,
			Metrics:        metrics,
			Health:         health,
			Alerts:         alerts,
			Failures:       detector,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			BaseContext:    ctx,
		}),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Server.Port).Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	log.Info().Msg("Server stopped")
	return nil
}

func checkAlerts(ctx context.Context, alerts *monitoring.AlertManager) {
	ticker := time.NewTicker(alertInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			alerts.CheckAlerts()
		}
	}
}
