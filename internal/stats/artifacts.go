package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qrlsim/internal/aggregate"
	"qrlsim/internal/config"
)

const runIndexFile = "run_index.json"

const (
	ConfigFile       = "config.yaml"
	SummaryTeXFile   = "summary.tex"
	SummaryJSONFile  = "summary.json"
	ErrorRateCSVFile = "p_error.csv"
	ErrorRateDatFile = "p_error.dat"
	CountsDatFile    = "counts.dat"
)

var runFiles = []string{ConfigFile, SummaryTeXFile, SummaryJSONFile, ErrorRateCSVFile, ErrorRateDatFile, CountsDatFile}

// RunMeta identifies a run and the random handles that reproduce it.
type RunMeta struct {
	RunID        string `json:"run_id"`
	CreatedAtUTC string `json:"created_at_utc"`
	Seed         int64  `json:"seed"`
	SimSeed      int64  `json:"sim_seed"`
	Source       string `json:"source"`
	Backend      string `json:"backend"`
}

type RunArtifacts struct {
	Meta   RunMeta
	Config config.Config
	Result aggregate.Result
}

// RunSummary is the JSON document stored next to the text datasets.
type RunSummary struct {
	Meta   RunMeta          `json:"meta"`
	Result aggregate.Result `json:"result"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Source       string  `json:"source"`
	Backend      string  `json:"backend"`
	Seed         int64   `json:"seed"`
	SimSeed      int64   `json:"sim_seed"`
	Windows      int     `json:"windows"`
	Shots        int     `json:"shots"`
	Fidelity     float64 `json:"fidelity"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes every output dataset for a run under baseDir/<run_id>.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Meta.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Meta.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	cfg, err := artifacts.Config.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, ConfigFile), cfg, 0o644); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, SummaryJSONFile), RunSummary{Meta: artifacts.Meta, Result: artifacts.Result}); err != nil {
		return "", err
	}

	res := artifacts.Result
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{SummaryTeXFile, func(w io.Writer) error { return WriteSummaryTeX(w, res, artifacts.Config.Output.Unit) }},
		{ErrorRateCSVFile, func(w io.Writer) error { return WriteErrorRateCSV(w, res.ErrorRows) }},
		{ErrorRateDatFile, func(w io.Writer) error { return WriteErrorRateDat(w, res.ErrorRows) }},
		{CountsDatFile, func(w io.Writer) error { return WriteCountsDat(w, res.Histogram) }},
	}
	for _, wr := range writers {
		if err := writeFile(filepath.Join(runDir, wr.name), wr.write); err != nil {
			return "", fmt.Errorf("write %s: %w", wr.name, err)
		}
	}

	return runDir, nil
}

func ReadRunSummary(baseDir, runID string) (RunSummary, bool, error) {
	path := filepath.Join(baseDir, runID, SummaryJSONFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunSummary{}, false, nil
		}
		return RunSummary{}, false, err
	}
	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return RunSummary{}, false, err
	}
	return summary, true, nil
}

func ReadRunConfig(baseDir, runID string) (config.Config, bool, error) {
	path := filepath.Join(baseDir, runID, ConfigFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.Config{}, false, nil
		}
		return config.Config{}, false, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, false, err
	}
	return cfg, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory to outDir/<run_id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range runFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
