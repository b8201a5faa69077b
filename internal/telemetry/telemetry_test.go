package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlsim/internal/model"
)

func TestInitTracingNone(t *testing.T) {
	tr, err := InitTracing(context.Background(), "none", nil)
	require.NoError(t, err)

	_, span := tr.Tracer.Start(context.Background(), "sample")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tr, err := InitTracing(context.Background(), "stdout", &buf)
	require.NoError(t, err)

	_, span := tr.Tracer.Start(context.Background(), "simulate")
	span.End()
	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "simulate"`)
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), "jaeger", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestRunMetricsObserveAndWrite(t *testing.T) {
	m := NewRunMetrics()
	m.Observe(model.RunRecord{
		Backend:    "density",
		Windows:    make([]model.WindowStat, 91),
		MeanPError: 0.05,
		Fidelity:   0.95,
		Shots:      1024,
		Rewards: []model.RewardCount{
			{Reward: model.RewardUp, Count: 0},
			{Reward: model.RewardDown, Count: 0},
			{Reward: model.RewardFlat, Count: 91, Percent: 100},
		},
	})

	assert.Equal(t, 0.95, testutil.ToFloat64(m.fidelity))
	assert.Equal(t, 91.0, testutil.ToFloat64(m.windows))
	assert.Equal(t, 91.0, testutil.ToFloat64(m.rewards.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("density")))

	path := filepath.Join(t.TempDir(), "qrlsim.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "qrlsim_fidelity 0.95"), text)
	assert.True(t, strings.Contains(text, `qrlsim_rewards{reward="+1"} 0`), text)
}
