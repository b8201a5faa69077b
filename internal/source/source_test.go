package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlsim/internal/config"
)

func TestCSVReaderSkipsHeaderAndUsesLastField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, os.WriteFile(path, []byte("pixel,I\n0,2.7\n1,2.8,\n# comment\n\n2,-1e-4\n"), 0o644))

	values, err := CSVReader{Path: path}.Series(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{2.7, 2.8, -1e-4}, values)
}

func TestCSVReaderRejectsBadRowsAfterData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("1.0\noops\n"), 0o644))

	_, err := CSVReader{Path: path}.Series(context.Background())
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("header\n"), 0o644))
	_, err = CSVReader{Path: empty}.Series(context.Background())
	require.Error(t, err)

	_, err = CSVReader{Path: filepath.Join(t.TempDir(), "missing.csv")}.Series(context.Background())
	require.Error(t, err)
}

func TestSyntheticIsSeededAndSized(t *testing.T) {
	a, err := Synthetic{Length: 64, Mean: 2.725, Sigma: 1e-4, Seed: 9}.Series(context.Background())
	require.NoError(t, err)
	b, err := Synthetic{Length: 64, Mean: 2.725, Sigma: 1e-4, Seed: 9}.Series(context.Background())
	require.NoError(t, err)
	c, err := Synthetic{Length: 64, Mean: 2.725, Sigma: 1e-4, Seed: 10}.Series(context.Background())
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	flat, err := Synthetic{Length: 3, Mean: 2.725}.Series(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{2.725, 2.725, 2.725}, flat)
}

func TestNewSelectsReaderByKind(t *testing.T) {
	cfg := config.Default().Source
	reader, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Synthetic{}, reader)

	cfg.Kind = config.SourceCSV
	cfg.CSVPath = "/tmp/x.csv"
	reader, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "csv.x.csv", reader.Name())

	cfg.Kind = "fits"
	_, err = New(cfg)
	require.Error(t, err)
}

func TestSliceReturnsCopy(t *testing.T) {
	s := Slice{Values: []float64{1, 2}}
	values, err := s.Series(context.Background())
	require.NoError(t, err)
	values[0] = 5
	assert.Equal(t, 1.0, s.Values[0])
	assert.Equal(t, "slice", s.Name())
}
