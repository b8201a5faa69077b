// Package pipeline runs the stages of a simulation in order: sample a cycle,
// take window means, derive rewards and error rates, build the circuit,
// simulate it under the calibrated noise and aggregate the result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"qrlsim/internal/aggregate"
	"qrlsim/internal/circuit"
	"qrlsim/internal/config"
	"qrlsim/internal/model"
	"qrlsim/internal/quantum"
	"qrlsim/internal/sampler"
	"qrlsim/internal/signal"
	"qrlsim/internal/source"
	"qrlsim/internal/storage"
	"qrlsim/internal/window"
)

// NoisyKinds are the gate kinds that carry the depolarizing channel.
var NoisyKinds = []circuit.Kind{circuit.KindH, circuit.KindCX, circuit.KindRX, circuit.KindRY, circuit.KindRZ}

// Runner wires one run. Source is required; the remaining fields fall back to
// values derived from Config when left zero.
type Runner struct {
	Config config.Config
	Source source.Reader
	// Backend overrides Config.Simulation.Backend. It must own its random source.
	Backend quantum.Backend
	Tracer  trace.Tracer
	Logger  *slog.Logger
	Now     func() time.Time
}

// Prepared is everything derived before simulation.
type Prepared struct {
	SourceName string
	Cycle      model.Cycle
	Windows    []model.WindowStat
	Rewards    []model.Reward
	MeanPError float64
	Circuit    circuit.Circuit
}

// Output is a completed run.
type Output struct {
	Record  model.RunRecord
	Circuit circuit.Circuit
	Result  aggregate.Result
}

// NewRunID returns a time-ordered run identifier.
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// Prepare validates the configuration and runs every stage up to circuit
// construction. Nothing is simulated.
func (r *Runner) Prepare(ctx context.Context) (Prepared, error) {
	if err := r.Config.Validate(); err != nil {
		return Prepared{}, err
	}
	if r.Source == nil {
		return Prepared{}, fmt.Errorf("%w: no input source", model.ErrConfig)
	}
	cfg := r.Config
	logger := r.logger()
	prep := Prepared{SourceName: r.Source.Name()}

	var series []float64
	err := r.stage(ctx, "load", func(ctx context.Context) error {
		var err error
		series, err = r.Source.Series(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", prep.SourceName, err)
		}
		if len(series) < cfg.Cycle.Length {
			return fmt.Errorf("%w: cycle length %d exceeds population of %d samples", model.ErrConfig, cfg.Cycle.Length, len(series))
		}
		return nil
	})
	if err != nil {
		return Prepared{}, err
	}
	logger.Debug("series loaded", "source", prep.SourceName, "samples", len(series))

	err = r.stage(ctx, "sample", func(context.Context) error {
		var err error
		prep.Cycle, err = sampler.Draw(series, cfg.Cycle.Length, rand.New(rand.NewSource(cfg.Cycle.Seed)))
		return err
	})
	if err != nil {
		return Prepared{}, err
	}

	var means []float64
	err = r.stage(ctx, "window", func(context.Context) error {
		var err error
		means, err = window.Means(prep.Cycle, cfg.Cycle.WindowSize)
		return err
	})
	if err != nil {
		return Prepared{}, err
	}

	err = r.stage(ctx, "signal", func(context.Context) error {
		var err error
		prep.Windows, err = signal.Derive(means, signal.NewRewardMapper(cfg.Signal), signal.NewErrorRateModel(cfg.Signal))
		if err != nil {
			return err
		}
		prep.Rewards = model.Rewards(prep.Windows)
		prep.MeanPError, err = model.MeanPError(prep.Windows)
		return err
	})
	if err != nil {
		return Prepared{}, err
	}
	logger.Debug("signal derived", "windows", len(prep.Windows), "mean_p_error", prep.MeanPError)

	err = r.stage(ctx, "circuit", func(context.Context) error {
		var err error
		prep.Circuit, err = circuit.Build(circuit.ParamsFromConfig(cfg.Circuit), prep.Rewards)
		return err
	})
	if err != nil {
		return Prepared{}, err
	}
	return prep, nil
}

// Run executes the full pipeline. An empty runID gets a generated one.
func (r *Runner) Run(ctx context.Context, runID string) (Output, error) {
	if runID == "" {
		var err error
		if runID, err = NewRunID(); err != nil {
			return Output{}, err
		}
	}
	cfg := r.Config
	logger := r.logger().With("run_id", runID)

	if err := cfg.Validate(); err != nil {
		return Output{}, err
	}
	backend, err := r.backend()
	if err != nil {
		return Output{}, err
	}

	prep, err := r.Prepare(ctx)
	if err != nil {
		return Output{}, err
	}

	var counts quantum.Counts
	err = r.stage(ctx, "simulate", func(ctx context.Context) error {
		noise, err := quantum.NewDepolarizingNoise(prep.MeanPError, NoisyKinds...)
		if err != nil {
			return err
		}
		counts, err = backend.Execute(ctx, prep.Circuit, noise, cfg.Simulation.Shots)
		if err != nil {
			return fmt.Errorf("%s backend: %w", backend.Name(), err)
		}
		return nil
	}, attribute.String("backend", backend.Name()), attribute.Int("shots", cfg.Simulation.Shots))
	if err != nil {
		return Output{}, err
	}

	var res aggregate.Result
	err = r.stage(ctx, "aggregate", func(context.Context) error {
		var err error
		res, err = aggregate.Summarize(prep.Windows, counts, cfg.Simulation.Shots)
		return err
	})
	if err != nil {
		return Output{}, err
	}

	record := storage.Versioned(model.RunRecord{
		RunID:        runID,
		CreatedAtUTC: r.now().UTC().Format(time.RFC3339),
		Seed:         cfg.Cycle.Seed,
		SimSeed:      cfg.Simulation.Seed,
		Backend:      backend.Name(),
		Source:       prep.SourceName,
		CycleIndices: prep.Cycle.Indices(),
		Windows:      prep.Windows,
		MeanPError:   res.MeanPError,
		Fidelity:     res.Fidelity,
		Shots:        res.Shots,
		Rewards:      res.Rewards,
		Histogram:    res.Histogram,
	})
	logger.Info("run complete",
		"backend", record.Backend,
		"windows", len(record.Windows),
		"fidelity", record.Fidelity,
		"outcomes", len(record.Histogram),
	)
	return Output{Record: record, Circuit: prep.Circuit, Result: res}, nil
}

// stage runs fn inside a span named after the stage. A cancelled context stops
// the run before the stage starts.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before %s: %w", name, err)
	}
	ctx, span := r.tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger().Debug("stage failed", "stage", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *Runner) backend() (quantum.Backend, error) {
	if r.Backend != nil {
		return r.Backend, nil
	}
	sim := r.Config.Simulation
	return quantum.NewBackend(sim.Backend, rand.New(rand.NewSource(sim.Seed)))
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return noop.NewTracerProvider().Tracer("")
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
