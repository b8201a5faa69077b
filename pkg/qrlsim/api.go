// Package qrlsim is the programmatic entry point used by qrlsimctl.
package qrlsim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"qrlsim/internal/aggregate"
	"qrlsim/internal/circuit"
	"qrlsim/internal/config"
	"qrlsim/internal/model"
	"qrlsim/internal/pipeline"
	"qrlsim/internal/source"
	"qrlsim/internal/stats"
	"qrlsim/internal/storage"
	"qrlsim/internal/telemetry"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "qrlsim.db"
	defaultUnit       = "days"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *slog.Logger
	// TraceOutput receives stdout trace spans; nil means os.Stdout.
	TraceOutput io.Writer
}

type Client struct {
	store       storage.Store
	initialized bool

	runsDir     string
	exportsDir  string
	logger      *slog.Logger
	traceOutput io.Writer
}

type RunRequest struct {
	Config config.Config
	// RunID is generated when empty.
	RunID string
	// Source overrides Config.Source.
	Source source.Reader
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Record       model.RunRecord
	Result       aggregate.Result
	Circuit      circuit.Circuit
	Unit         string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Source       string
	Backend      string
	Seed         int64
	SimSeed      int64
	Windows      int
	Shots        int
	Fidelity     float64
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type ShowSummary struct {
	Meta   stats.RunMeta
	Result aggregate.Result
	Unit   string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type CircuitRequest struct {
	Config config.Config
	Source source.Reader
}

type CircuitSummary struct {
	Source     string
	Windows    int
	Rewards    []model.RewardCount
	MeanPError float64
	Circuit    circuit.Circuit
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:       store,
		runsDir:     runsDir,
		exportsDir:  exportsDir,
		logger:      logger,
		traceOutput: opts.TraceOutput,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Run executes one pipeline run, writes its artifacts under the runs directory,
// indexes it and persists the record.
func (c *Client) Run(ctx context.Context, req RunRequest) (summary RunSummary, err error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}

	reader := req.Source
	if reader == nil {
		reader, err = source.New(cfg.Source)
		if err != nil {
			return RunSummary{}, err
		}
	}

	tracing, err := telemetry.InitTracing(ctx, cfg.Telemetry.Trace, c.traceOutput)
	if err != nil {
		return RunSummary{}, err
	}
	defer func() {
		if shutdownErr := tracing.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil && err == nil {
			err = fmt.Errorf("flush traces: %w", shutdownErr)
		}
	}()

	runner := &pipeline.Runner{
		Config: cfg,
		Source: reader,
		Tracer: tracing.Tracer,
		Logger: c.logger,
	}
	out, err := runner.Run(ctx, req.RunID)
	if err != nil {
		return RunSummary{}, err
	}
	rec := out.Record

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Meta:   metaFromRecord(rec),
		Config: cfg,
		Result: out.Result,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:        rec.RunID,
		Source:       rec.Source,
		Backend:      rec.Backend,
		Seed:         rec.Seed,
		SimSeed:      rec.SimSeed,
		Windows:      len(rec.Windows),
		Shots:        rec.Shots,
		Fidelity:     rec.Fidelity,
		CreatedAtUTC: rec.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveRun(ctx, rec); err != nil {
		return RunSummary{}, fmt.Errorf("persist run %s: %w", rec.RunID, err)
	}

	if cfg.Telemetry.MetricsFile != "" {
		metrics := telemetry.NewRunMetrics()
		metrics.Observe(rec)
		if err := metrics.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
			return RunSummary{}, fmt.Errorf("write metrics: %w", err)
		}
	}

	c.logger.Info("artifacts written", "run_id", rec.RunID, "dir", runDir)
	return RunSummary{
		RunID:        rec.RunID,
		ArtifactsDir: filepath.Clean(runDir),
		Record:       rec,
		Result:       out.Result,
		Circuit:      out.Circuit,
		Unit:         unitOf(cfg),
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Source:       e.Source,
			Backend:      e.Backend,
			Seed:         e.Seed,
			SimSeed:      e.SimSeed,
			Windows:      e.Windows,
			Shots:        e.Shots,
			Fidelity:     e.Fidelity,
		})
	}
	return out, nil
}

// Show loads a run from the store, falling back to its summary.json artifact.
func (c *Client) Show(ctx context.Context, req ShowRequest) (ShowSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "show")
	if err != nil {
		return ShowSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return ShowSummary{}, err
	}

	unit := defaultUnit
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return ShowSummary{}, err
	}
	if ok {
		unit = unitOf(cfg)
	}

	rec, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ShowSummary{}, err
	}
	if ok {
		return ShowSummary{Meta: metaFromRecord(rec), Result: resultFromRecord(rec), Unit: unit}, nil
	}

	summary, ok, err := stats.ReadRunSummary(c.runsDir, runID)
	if err != nil {
		return ShowSummary{}, err
	}
	if !ok {
		return ShowSummary{}, fmt.Errorf("run not found: %s", runID)
	}
	return ShowSummary{Meta: summary.Meta, Result: summary.Result, Unit: unit}, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Circuit derives the circuit a run would simulate without simulating it.
func (c *Client) Circuit(ctx context.Context, req CircuitRequest) (CircuitSummary, error) {
	reader := req.Source
	if reader == nil {
		var err error
		reader, err = source.New(req.Config.Source)
		if err != nil {
			return CircuitSummary{}, err
		}
	}
	runner := &pipeline.Runner{Config: req.Config, Source: reader, Logger: c.logger}
	prep, err := runner.Prepare(ctx)
	if err != nil {
		return CircuitSummary{}, err
	}
	return CircuitSummary{
		Source:     prep.SourceName,
		Windows:    len(prep.Windows),
		Rewards:    aggregate.Distribution(prep.Rewards),
		MeanPError: prep.MeanPError,
		Circuit:    prep.Circuit,
	}, nil
}

func (c *Client) resolveRunID(runID string, latest bool, op string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%s requires run id or latest", op)
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func unitOf(cfg config.Config) string {
	if cfg.Output.Unit != "" {
		return cfg.Output.Unit
	}
	return defaultUnit
}

func metaFromRecord(rec model.RunRecord) stats.RunMeta {
	return stats.RunMeta{
		RunID:        rec.RunID,
		CreatedAtUTC: rec.CreatedAtUTC,
		Seed:         rec.Seed,
		SimSeed:      rec.SimSeed,
		Source:       rec.Source,
		Backend:      rec.Backend,
	}
}

func resultFromRecord(rec model.RunRecord) aggregate.Result {
	return aggregate.Result{
		Windows:    len(rec.Windows),
		Rewards:    rec.Rewards,
		MeanPError: rec.MeanPError,
		Fidelity:   rec.Fidelity,
		ErrorRows:  aggregate.ErrorRows(rec.Windows),
		Histogram:  rec.Histogram,
		Shots:      rec.Shots,
	}
}
