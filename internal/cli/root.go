// Package cli wires the simulator into the appsync-sim command line.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/your-username/appsync-flow-simulator/internal/config"
	"github.com/your-username/appsync-flow-simulator/internal/flow"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
)

// Version is injected during build
var Version = "dev"

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "appsync-sim",
		Short:   "Simulate GraphQL operations flowing through a managed API gateway",
		Version: Version,
		Long: `appsync-sim walks GraphQL operations through a simulated gateway pipeline:
client, authentication, resolver, response cache, data source and response.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if err := godotenv.Load(); err != nil {
				log.Debug().Err(err).Msg("No .env file found")
			}
			setupLogger(config.Load().Log.Level)
		},
	}

	root.AddCommand(newServeCmd(), newExecCmd(), newWatchCmd())
	return root
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if level == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// simulatorOptions translates configuration into simulator options. A zero
// time scale or fast mode skips every simulated delay.
func simulatorOptions(cfg *config.Config, fast bool) (simulator.Options, error) {
	sim := cfg.Simulation
	opts := simulator.Options{
		Random:         flow.NewRandom(sim.Seed),
		CacheTTL:       sim.CacheTTL,
		FeedCapacity:   sim.FeedCapacity,
		LogCapacity:    sim.LogCapacity,
		HistoryLimit:   sim.HistoryLimit,
		TraceRetention: sim.TraceRetention,
		JWTSecret:      cfg.JWT.Secret,
	}

	if fast || sim.TimeScale == 0 {
		opts.Sleeper = flow.NoDelay{}
	} else {
		opts.Sleeper = flow.TimerSleeper{Scale: sim.TimeScale}
	}

	if sim.ProfilePath != "" {
		profile, err := flow.LoadProfile(sim.ProfilePath)
		if err != nil {
			return simulator.Options{}, fmt.Errorf("loading simulation profile: %w", err)
		}
		opts.Profile = &profile
		log.Info().Str("path", sim.ProfilePath).Msg("Loaded simulation profile")
	}
	return opts, nil
}
