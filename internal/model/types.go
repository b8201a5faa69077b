package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a fatal configuration problem detected before any work starts.
	ErrConfig = errors.New("configuration error")
	// ErrNumericDomain marks a probability or rate outside its valid range.
	ErrNumericDomain = errors.New("numeric domain error")
	// ErrExecution marks a simulation backend that could not complete its shots.
	ErrExecution = errors.New("execution error")
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Sample is one drawn measurement: the population index and the value found there.
type Sample struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Cycle is the ordered set of samples drawn for a run, in draw order.
type Cycle []Sample

// Values returns a copy of the sample values in cycle order.
func (c Cycle) Values() []float64 {
	values := make([]float64, len(c))
	for i, s := range c {
		values[i] = s.Value
	}
	return values
}

// Indices returns a copy of the population indices in cycle order.
func (c Cycle) Indices() []int {
	indices := make([]int, len(c))
	for i, s := range c {
		indices[i] = s.Index
	}
	return indices
}

// Reward is the three-valued signal derived from a window mean.
type Reward int8

const (
	RewardDown Reward = -1
	RewardFlat Reward = 0
	RewardUp   Reward = 1
)

func (r Reward) Valid() bool {
	return r == RewardDown || r == RewardFlat || r == RewardUp
}

// Int returns the signed value used as the rotation-angle coefficient.
func (r Reward) Int() int {
	return int(r)
}

func (r Reward) String() string {
	switch r {
	case RewardDown:
		return "-1"
	case RewardFlat:
		return "0"
	case RewardUp:
		return "+1"
	default:
		return fmt.Sprintf("reward(%d)", int(r))
	}
}

// WindowStat holds the values derived once for a single window.
type WindowStat struct {
	Offset int     `json:"offset"`
	Mean   float64 `json:"mean"`
	DeltaT float64 `json:"delta_t"`
	Reward Reward  `json:"reward"`
	PError float64 `json:"p_error"`
}

// Rewards extracts the reward sequence in window order.
func Rewards(stats []WindowStat) []Reward {
	rewards := make([]Reward, len(stats))
	for i, s := range stats {
		rewards[i] = s.Reward
	}
	return rewards
}

// MeanPError is the arithmetic mean of p_error across windows.
func MeanPError(stats []WindowStat) (float64, error) {
	if len(stats) == 0 {
		return 0, fmt.Errorf("%w: no windows to average", ErrConfig)
	}
	sum := 0.0
	for _, s := range stats {
		sum += s.PError
	}
	return sum / float64(len(stats)), nil
}

// RewardCount is one entry of the reward distribution.
type RewardCount struct {
	Reward  Reward  `json:"reward"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ErrorRateRow is one row of the delta_t sorted error-rate dataset.
type ErrorRateRow struct {
	DeltaT   float64 `json:"delta_t"`
	PError   float64 `json:"p_error"`
	Fidelity float64 `json:"fidelity"`
}

// HistogramRow is one measured bitstring and its occurrence count.
type HistogramRow struct {
	Bitstring string `json:"bitstring"`
	Count     int    `json:"count"`
}

// RunRecord is the persisted outcome of one pipeline run.
type RunRecord struct {
	VersionedRecord
	RunID        string         `json:"run_id"`
	CreatedAtUTC string         `json:"created_at_utc"`
	Seed         int64          `json:"seed"`
	SimSeed      int64          `json:"sim_seed"`
	Backend      string         `json:"backend"`
	Source       string         `json:"source"`
	CycleIndices []int          `json:"cycle_indices"`
	Windows      []WindowStat   `json:"windows"`
	MeanPError   float64        `json:"mean_p_error"`
	Fidelity     float64        `json:"fidelity"`
	Shots        int            `json:"shots"`
	Rewards      []RewardCount  `json:"rewards"`
	Histogram    []HistogramRow `json:"histogram"`
}
