// Package source provides the readers that supply the flat ordered numeric
// series the pipeline samples from.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"qrlsim/internal/config"
)

// Reader yields one ordered numeric series.
type Reader interface {
	Name() string
	Series(ctx context.Context) ([]float64, error)
}

// New builds the reader selected by cfg.
func New(cfg config.SourceConfig) (Reader, error) {
	switch cfg.Kind {
	case "", config.SourceSynthetic:
		return Synthetic{
			Length: cfg.SyntheticLength,
			Mean:   cfg.SyntheticMean,
			Sigma:  cfg.SyntheticSigma,
			Seed:   cfg.SyntheticSeed,
		}, nil
	case config.SourceCSV:
		return CSVReader{Path: cfg.CSVPath}, nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", cfg.Kind)
	}
}

// Slice serves an in-memory series.
type Slice struct {
	Label  string
	Values []float64
}

func (s Slice) Name() string {
	if s.Label == "" {
		return "slice"
	}
	return s.Label
}

func (s Slice) Series(_ context.Context) ([]float64, error) {
	return append([]float64(nil), s.Values...), nil
}

// Synthetic generates a seeded Gaussian series around Mean.
type Synthetic struct {
	Length int
	Mean   float64
	Sigma  float64
	Seed   int64
}

func (s Synthetic) Name() string {
	return fmt.Sprintf("synthetic.gauss.n%d.seed%d", s.Length, s.Seed)
}

func (s Synthetic) Series(_ context.Context) ([]float64, error) {
	if s.Length <= 0 {
		return nil, fmt.Errorf("synthetic series length must be positive, got %d", s.Length)
	}
	rng := rand.New(rand.NewSource(s.Seed))
	values := make([]float64, s.Length)
	for i := range values {
		values[i] = s.Mean + s.Sigma*rng.NormFloat64()
	}
	return values, nil
}

// CSVReader reads one value per row: the last non-empty field. Leading rows
// that do not parse as numbers are treated as headers.
type CSVReader struct {
	Path string
}

func (r CSVReader) Name() string {
	return fmt.Sprintf("csv.%s", filepath.Base(r.Path))
}

func (r CSVReader) Series(ctx context.Context) ([]float64, error) {
	path := strings.TrimSpace(r.Path)
	if path == "" {
		return nil, fmt.Errorf("csv path is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	values, err := readSeries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", path, err)
	}
	return values, nil
}

func readSeries(ctx context.Context, in io.Reader) ([]float64, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	values := make([]float64, 0, 512)
	row := 0
	for {
		if row%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		field, ok := lastField(record)
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			if len(values) == 0 {
				continue
			}
			return nil, fmt.Errorf("parse value row %d: %w", row, err)
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no numeric rows")
	}
	return values, nil
}

func lastField(record []string) (string, bool) {
	for i := len(record) - 1; i >= 0; i-- {
		field := strings.TrimSpace(record[i])
		if field != "" {
			return field, true
		}
	}
	return "", false
}
