package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/your-username/appsync-flow-simulator/internal/config"
	"github.com/your-username/appsync-flow-simulator/internal/export"
	"github.com/your-username/appsync-flow-simulator/internal/flow"
	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
)

type execOptions struct {
	kind       string
	dataSource string
	resolver   string
	query      string
	seed       int64
	fast       bool
	repeat     int
	verbose    bool
	exportPath string
}

func newExecCmd() *cobra.Command {
	o := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run operations through the pipeline and print every step",
		Long: `Run one or more operations locally and print each stage, detail and log
line as it happens, followed by a results table and the counters.

Without --query the sample operation for --kind is used. Pass --query @file
to read the operation text from a file.`,
		Example: `  appsync-sim exec --fast
  appsync-sim exec --kind mutation --datasource lambda --resolver pipeline
  appsync-sim exec --repeat 3 --seed 42 --fast
  appsync-sim exec --repeat 10 --fast --export history.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if !o.verbose && cfg.Log.Level != "debug" {
				zerolog.SetGlobalLevel(zerolog.Disabled)
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed = o.seed
			}
			return runExec(cmd, cfg, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.kind, "kind", string(models.KindQuery), "operation kind: query, mutation or subscription")
	f.StringVar(&o.dataSource, "datasource", string(models.SourceDynamoDB), "data source: dynamodb, lambda, elasticsearch or http")
	f.StringVar(&o.resolver, "resolver", string(models.ResolverVTL), "resolver: vtl, javascript, pipeline or direct")
	f.StringVar(&o.query, "query", "", "operation text, or @path to read it from a file")
	f.Int64Var(&o.seed, "seed", 0, "random seed (0 seeds from the clock)")
	f.BoolVar(&o.fast, "fast", false, "skip simulated delays")
	f.IntVar(&o.repeat, "repeat", 1, "number of times to submit the operation")
	f.BoolVar(&o.verbose, "verbose", false, "keep process logging enabled")
	f.StringVar(&o.exportPath, "export", "", "write the operation history to a .csv, .json or .xlsx file")
	return cmd
}

func runExec(cmd *cobra.Command, cfg *config.Config, o *execOptions) error {
	if o.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", o.repeat)
	}

	opts, err := simulatorOptions(cfg, o.fast)
	if err != nil {
		return err
	}
	sim := simulator.New(opts)

	sample, err := sim.SwitchOperation(models.OperationKind(o.kind))
	if err != nil {
		return err
	}
	if err := sim.SelectDataSource(models.DataSourceKind(o.dataSource)); err != nil {
		return err
	}
	if err := sim.SelectResolver(models.ResolverKind(o.resolver)); err != nil {
		return err
	}

	text, err := operationText(o.query, sample)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderer := NewRenderer(out)

	// Render inline so the transcript holds every event
	stopRendering := sim.Observe(renderer.Render)

	results := make([]*flow.Result, 0, o.repeat)
	var runErr error
	for i := 0; i < o.repeat; i++ {
		res, err := sim.Execute(cmd.Context(), text)
		if err != nil {
			runErr = err
			break
		}
		results = append(results, res)
	}

	stopRendering()
	if runErr != nil {
		return runErr
	}

	if err := WriteResults(out, results); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := WriteStats(out, sim.Stats(), sim.CacheStats()); err != nil {
		return err
	}

	if o.exportPath != "" {
		return exportHistory(sim, o.exportPath)
	}
	return nil
}

// exportHistory writes the history in the format named by the file extension
func exportHistory(sim *simulator.Simulator, path string) error {
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	defer f.Close()

	result, err := export.NewExporter(sim).Export(f, export.ExportOptions{
		Format:         format,
		Dataset:        export.DatasetOperations,
		IncludeHeaders: true,
	})
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("rows", result.RowCount).Msg("Exported operation history")
	return f.Close()
}

func operationText(query, sample string) (string, error) {
	if !strings.HasPrefix(query, "@") {
		if query == "" {
			return sample, nil
		}
		return query, nil
	}

	raw, err := os.ReadFile(strings.TrimPrefix(query, "@"))
	if err != nil {
		return "", fmt.Errorf("reading operation: %w", err)
	}
	return string(raw), nil
}
