package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"qrlsim/internal/circuit"
	"qrlsim/internal/config"
	"qrlsim/internal/model"
	"qrlsim/internal/quantum"
	"qrlsim/internal/source"
)

var fixedNow = func() time.Time { return time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC) }

func constantSource(n int, v float64) source.Slice {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return source.Slice{Label: "constant", Values: values}
}

func synthetic(t *testing.T, cfg config.Config) source.Reader {
	t.Helper()
	reader, err := source.New(cfg.Source)
	require.NoError(t, err)
	return reader
}

func TestRunAllReferenceInput(t *testing.T) {
	cfg := config.Default()
	runner := &Runner{Config: cfg, Source: constantSource(500, cfg.Signal.Reference), Now: fixedNow}

	out, err := runner.Run(context.Background(), "run-ref")
	require.NoError(t, err)

	rec := out.Record
	assert.Equal(t, "run-ref", rec.RunID)
	assert.Equal(t, "2026-02-10T10:00:00Z", rec.CreatedAtUTC)
	assert.Len(t, rec.Windows, 91)
	assert.Len(t, rec.CycleIndices, 100)
	for _, w := range rec.Windows {
		assert.Equal(t, model.RewardFlat, w.Reward)
		assert.InDelta(t, cfg.Signal.BasePError, w.PError, 1e-15)
	}
	assert.InDelta(t, 0.95, rec.Fidelity, 1e-12)
	assert.Equal(t, 91, out.Result.RewardCount(model.RewardFlat).Count)
	assert.InDelta(t, 100, out.Result.RewardCount(model.RewardFlat).Percent, 1e-9)

	total := 0
	for _, row := range rec.Histogram {
		total += row.Count
	}
	assert.Equal(t, cfg.Simulation.Shots, total)
	assert.Equal(t, quantum.KindTrajectory, rec.Backend)
}

func TestRunIsDeterministicForEqualSeeds(t *testing.T) {
	cfg := config.Default()
	cfg.Source.SyntheticSigma = 5e-4
	cfg.Simulation.Shots = 256

	first, err := (&Runner{Config: cfg, Source: synthetic(t, cfg), Now: fixedNow}).Run(context.Background(), "run-a")
	require.NoError(t, err)
	second, err := (&Runner{Config: cfg, Source: synthetic(t, cfg), Now: fixedNow}).Run(context.Background(), "run-a")
	require.NoError(t, err)

	assert.Equal(t, first.Record, second.Record)
	assert.Equal(t, first.Circuit.String(), second.Circuit.String())

	cfg.Cycle.Seed = 2
	third, err := (&Runner{Config: cfg, Source: synthetic(t, cfg), Now: fixedNow}).Run(context.Background(), "run-a")
	require.NoError(t, err)
	assert.NotEqual(t, first.Record.CycleIndices, third.Record.CycleIndices)
}

func TestRunDensityBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Backend = quantum.KindDensity
	cfg.Source.SyntheticSigma = 5e-4

	out, err := (&Runner{Config: cfg, Source: synthetic(t, cfg)}).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, quantum.KindDensity, out.Record.Backend)
	assert.NotEmpty(t, out.Record.RunID)
	assert.Equal(t, cfg.Simulation.Shots, out.Result.Shots)
	assert.InDelta(t, 1-out.Record.MeanPError, out.Record.Fidelity, 1e-15)
}

func TestPrepareBuildsCircuitFromRewards(t *testing.T) {
	cfg := config.Default()
	cfg.Source.SyntheticSigma = 5e-4
	prep, err := (&Runner{Config: cfg, Source: synthetic(t, cfg)}).Prepare(context.Background())
	require.NoError(t, err)

	n := cfg.Circuit.Qubits
	assert.Len(t, prep.Rewards, len(prep.Windows))
	ops := prep.Circuit.CountOps()
	assert.Equal(t, n, ops[circuit.KindH])
	assert.Equal(t, n-1, ops[circuit.KindCX])
	assert.Equal(t, len(prep.Rewards), ops[circuit.KindRX])
	assert.Equal(t, len(prep.Rewards), ops[circuit.KindRY])
	assert.Equal(t, 1, ops[circuit.KindRZ])
	assert.Equal(t, n, ops[circuit.KindMeasure])
}

func TestRunConfigErrorsBeforeWork(t *testing.T) {
	cfg := config.Default()
	backend := &failingBackend{}

	_, err := (&Runner{Config: cfg, Source: constantSource(50, 2.725), Backend: backend}).Run(context.Background(), "run-x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))
	assert.Zero(t, backend.calls)

	cfg.Cycle.WindowSize = cfg.Cycle.Length + 1
	_, err = (&Runner{Config: cfg, Source: constantSource(500, 2.725), Backend: backend}).Run(context.Background(), "run-x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))
	assert.Zero(t, backend.calls)

	_, err = (&Runner{Config: config.Default()}).Prepare(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))
}

func TestRunPropagatesBackendFailure(t *testing.T) {
	cfg := config.Default()
	backend := &failingBackend{}

	_, err := (&Runner{Config: cfg, Source: constantSource(500, 2.725), Backend: backend}).Run(context.Background(), "run-x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrExecution))
	assert.Equal(t, 1, backend.calls)
	assert.Contains(t, err.Error(), "simulate: failing backend")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Runner{Config: config.Default(), Source: constantSource(500, 2.725)}).Run(ctx, "run-x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunEmitsOneSpanPerStage(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg := config.Default()
	cfg.Simulation.Shots = 64
	_, err := (&Runner{Config: cfg, Source: constantSource(500, 2.725), Tracer: tp.Tracer("test")}).Run(context.Background(), "run-x")
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"load", "sample", "window", "signal", "circuit", "simulate", "aggregate"}, names)
}

type failingBackend struct {
	calls int
}

func (b *failingBackend) Name() string { return "failing" }

func (b *failingBackend) Execute(context.Context, circuit.Circuit, quantum.NoiseModel, int) (quantum.Counts, error) {
	b.calls++
	return nil, fmt.Errorf("%w: device lost", model.ErrExecution)
}
