package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrlsim/internal/config"
	"qrlsim/pkg/qrlsim"
)

// RunOptions holds flags for the run command. Zero values keep the
// configuration file's setting.
type RunOptions struct {
	*RootOptions
	ConfigPath  string
	RunID       string
	Seed        int64
	SimSeed     int64
	Backend     string
	Source      string
	CSVPath     string
	Shots       int
	Trace       string
	MetricsFile string
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one simulation run and write its artifacts",
		Long: `Execute one simulation run.

The run writes config.yaml, summary.tex, summary.json, p_error.csv,
p_error.dat and counts.dat under <runs-dir>/<run-id>, appends the run index
and stores the run record.

Example:
  qrlsimctl run --config qrlsim.yaml
  qrlsimctl run --source csv --csv series.csv --backend density --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("runs-dir") && cfg.Output.Dir != "" {
				opts.RunsDir = cfg.Output.Dir
			}
			if !cmd.Flags().Changed("store") {
				opts.StoreKind = cfg.Store.Kind
			}
			if !cmd.Flags().Changed("db-path") && cfg.Store.Path != "" {
				opts.DBPath = cfg.Store.Path
			}

			client, err := newClient(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.Run(cmd.Context(), qrlsim.RunRequest{Config: cfg, RunID: opts.RunID})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s artifacts=%s\n", summary.RunID, summary.ArtifactsDir)
			fmt.Fprintln(out, renderSummary(out, summary.Result, summary.Unit))
			return nil
		},
	}

	addConfigFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "explicit run id (default: generated UUIDv7)")
	cmd.Flags().Int64Var(&opts.SimSeed, "sim-seed", 0, "simulator seed")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "simulation backend: trajectory|density")
	cmd.Flags().IntVar(&opts.Shots, "shots", 0, "number of shots")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "trace exporter: none|stdout")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write run gauges to this textfile")

	return cmd
}

func addConfigFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file (default: built-in defaults)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "sampler seed")
	cmd.Flags().StringVar(&opts.Source, "source", "", "input source: synthetic|csv")
	cmd.Flags().StringVar(&opts.CSVPath, "csv", "", "CSV series path (implies --source csv)")
}

// loadRunConfig reads the configuration file, applies explicitly set flags and
// validates the result.
func loadRunConfig(cmd *cobra.Command, opts *RunOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Cycle.Seed = opts.Seed
	}
	if flags.Changed("sim-seed") {
		cfg.Simulation.Seed = opts.SimSeed
	}
	if flags.Changed("backend") {
		cfg.Simulation.Backend = opts.Backend
	}
	if flags.Changed("shots") {
		cfg.Simulation.Shots = opts.Shots
	}
	if flags.Changed("source") {
		cfg.Source.Kind = opts.Source
	}
	if flags.Changed("csv") {
		cfg.Source.Kind = config.SourceCSV
		cfg.Source.CSVPath = opts.CSVPath
	}
	if flags.Changed("trace") {
		cfg.Telemetry.Trace = opts.Trace
	}
	if flags.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile = opts.MetricsFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
