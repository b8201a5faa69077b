package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlsim/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFlatSeries(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("pixel,temperature\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,2.725\n", i)
	}
	path := filepath.Join(dir, "series.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunRunsShowExportCircuit(t *testing.T) {
	base := t.TempDir()
	runsDir := filepath.Join(base, "runs")
	exportsDir := filepath.Join(base, "exports")
	csvPath := writeFlatSeries(t, base, 300)
	common := []string{"--store", "memory", "--runs-dir", runsDir, "--exports-dir", exportsDir}

	out, err := execute(t, append([]string{"run", "--csv", csvPath, "--shots", "64", "--run-id", "run-flat"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "run_id=run-flat")
	assert.Contains(t, out, "91 days")
	assert.Contains(t, out, "91 (100.0%)")
	assert.Contains(t, out, "95.0%")

	tex, err := os.ReadFile(filepath.Join(runsDir, "run-flat", "summary.tex"))
	require.NoError(t, err)
	assert.Contains(t, string(tex), `Fidelity & 95.0\% \\`)

	out, err = execute(t, append([]string{"runs"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "run-flat")
	assert.Contains(t, out, "csv.series.csv")

	out, err = execute(t, append([]string{"show", "--latest"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "run_id=run-flat")
	assert.Contains(t, out, "Rewards (0)")

	out, err = execute(t, append([]string{"export", "run-flat"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(exportsDir, "run-flat"))
	_, err = os.Stat(filepath.Join(exportsDir, "run-flat", "counts.dat"))
	require.NoError(t, err)

	out, err = execute(t, append([]string{"circuit", "--csv", csvPath}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "// rewards(0)=91")
	assert.Contains(t, out, "rz(1.5707963267948966) q[2];")
	assert.Contains(t, out, "measure q[3] -> c[3];")
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	base := t.TempDir()
	cfgPath := filepath.Join(base, "qrlsim.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cycle:\n  length: 10\n  window_size: 20\n"), 0o644))

	_, err := execute(t, "run", "--config", cfgPath, "--store", "memory", "--runs-dir", filepath.Join(base, "runs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))

	_, err = execute(t, "run", "--backend", "analog", "--store", "memory", "--runs-dir", filepath.Join(base, "runs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))

	_, err = execute(t, "show", "--store", "memory", "--runs-dir", filepath.Join(base, "runs"))
	require.Error(t, err)
}
