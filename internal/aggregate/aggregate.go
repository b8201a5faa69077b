// Package aggregate formats and orders already-derived run data. Nothing here
// recomputes an upstream value.
package aggregate

import (
	"fmt"
	"sort"

	"qrlsim/internal/model"
)

// Result is everything the output writers need for one run.
type Result struct {
	Windows    int                  `json:"windows"`
	Rewards    []model.RewardCount  `json:"rewards"`
	MeanPError float64              `json:"mean_p_error"`
	Fidelity   float64              `json:"fidelity"`
	ErrorRows  []model.ErrorRateRow `json:"error_rows"`
	Histogram  []model.HistogramRow `json:"histogram"`
	Shots      int                  `json:"shots"`
}

// RewardCount returns the distribution entry for r.
func (r Result) RewardCount(reward model.Reward) model.RewardCount {
	for _, rc := range r.Rewards {
		if rc.Reward == reward {
			return rc
		}
	}
	return model.RewardCount{Reward: reward}
}

// Summarize builds the reward distribution, the delta_t-sorted error table and
// the lexicographic histogram. counts must total shots.
func Summarize(stats []model.WindowStat, counts map[string]int, shots int) (Result, error) {
	if len(stats) == 0 {
		return Result{}, fmt.Errorf("%w: no window statistics to aggregate", model.ErrConfig)
	}
	meanPError, err := model.MeanPError(stats)
	if err != nil {
		return Result{}, err
	}

	histogram := Histogram(counts)
	total := 0
	for _, row := range histogram {
		total += row.Count
	}
	if total != shots {
		return Result{}, fmt.Errorf("%w: histogram totals %d, expected %d shots", model.ErrExecution, total, shots)
	}

	return Result{
		Windows:    len(stats),
		Rewards:    Distribution(model.Rewards(stats)),
		MeanPError: meanPError,
		Fidelity:   1 - meanPError,
		ErrorRows:  ErrorRows(stats),
		Histogram:  histogram,
		Shots:      shots,
	}, nil
}

// Distribution counts rewards in the order +1, -1, 0.
func Distribution(rewards []model.Reward) []model.RewardCount {
	order := []model.Reward{model.RewardUp, model.RewardDown, model.RewardFlat}
	counts := make(map[model.Reward]int, len(order))
	for _, r := range rewards {
		counts[r]++
	}
	out := make([]model.RewardCount, 0, len(order))
	for _, r := range order {
		rc := model.RewardCount{Reward: r, Count: counts[r]}
		if len(rewards) > 0 {
			rc.Percent = float64(counts[r]) / float64(len(rewards)) * 100
		}
		out = append(out, rc)
	}
	return out
}

// ErrorRows sorts (delta_t, p_error, 1-p_error) ascending by delta_t; ties
// keep window order.
func ErrorRows(stats []model.WindowStat) []model.ErrorRateRow {
	rows := make([]model.ErrorRateRow, len(stats))
	for i, s := range stats {
		rows[i] = model.ErrorRateRow{DeltaT: s.DeltaT, PError: s.PError, Fidelity: 1 - s.PError}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DeltaT < rows[j].DeltaT
	})
	return rows
}

// Histogram orders counts lexicographically by bitstring.
func Histogram(counts map[string]int) []model.HistogramRow {
	rows := make([]model.HistogramRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, model.HistogramRow{Bitstring: k, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Bitstring < rows[j].Bitstring
	})
	return rows
}
