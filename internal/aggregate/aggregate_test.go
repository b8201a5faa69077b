package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlsim/internal/model"
)

func sampleStats() []model.WindowStat {
	return []model.WindowStat{
		{Offset: 0, DeltaT: 3, PError: 0.0509, Reward: model.RewardUp},
		{Offset: 1, DeltaT: 1, PError: 0.0503, Reward: model.RewardDown},
		{Offset: 2, DeltaT: 0, PError: 0.05, Reward: model.RewardFlat},
		{Offset: 3, DeltaT: 1, PError: 0.0503, Reward: model.RewardUp},
	}
}

func TestSummarize(t *testing.T) {
	counts := map[string]int{"1010": 4, "0001": 3, "0000": 1}

	res, err := Summarize(sampleStats(), counts, 8)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Windows)
	assert.Equal(t, 8, res.Shots)
	assert.InDelta(t, (0.0509+0.0503+0.05+0.0503)/4, res.MeanPError, 1e-15)
	assert.Equal(t, 1-res.MeanPError, res.Fidelity)

	assert.Equal(t, model.RewardCount{Reward: model.RewardUp, Count: 2, Percent: 50}, res.RewardCount(model.RewardUp))
	assert.Equal(t, model.RewardCount{Reward: model.RewardDown, Count: 1, Percent: 25}, res.RewardCount(model.RewardDown))
	assert.Equal(t, model.RewardCount{Reward: model.RewardFlat, Count: 1, Percent: 25}, res.RewardCount(model.RewardFlat))

	require.Len(t, res.ErrorRows, 4)
	for i := 1; i < len(res.ErrorRows); i++ {
		assert.LessOrEqual(t, res.ErrorRows[i-1].DeltaT, res.ErrorRows[i].DeltaT)
	}
	assert.Equal(t, model.ErrorRateRow{DeltaT: 0, PError: 0.05, Fidelity: 0.95}, res.ErrorRows[0])

	assert.Equal(t, []model.HistogramRow{
		{Bitstring: "0000", Count: 1},
		{Bitstring: "0001", Count: 3},
		{Bitstring: "1010", Count: 4},
	}, res.Histogram)
}

func TestDistributionSumsToWindowCount(t *testing.T) {
	rewards := make([]model.Reward, 91)
	for i := range rewards {
		rewards[i] = model.Reward(i%3 - 1)
	}
	dist := Distribution(rewards)
	total, pct := 0, 0.0
	for _, rc := range dist {
		total += rc.Count
		pct += rc.Percent
	}
	assert.Equal(t, 91, total)
	assert.InDelta(t, 100, pct, 1e-9)
	assert.Equal(t, []model.Reward{model.RewardUp, model.RewardDown, model.RewardFlat},
		[]model.Reward{dist[0].Reward, dist[1].Reward, dist[2].Reward})
}

func TestErrorRowsStableForTies(t *testing.T) {
	stats := []model.WindowStat{
		{DeltaT: 2, PError: 0.2},
		{DeltaT: 1, PError: 0.11},
		{DeltaT: 1, PError: 0.12},
	}
	rows := ErrorRows(stats)
	assert.Equal(t, []float64{0.11, 0.12, 0.2}, []float64{rows[0].PError, rows[1].PError, rows[2].PError})
}

func TestSummarizeRejectsMismatchedShots(t *testing.T) {
	_, err := Summarize(sampleStats(), map[string]int{"00": 3}, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrExecution))

	_, err = Summarize(nil, map[string]int{"00": 4}, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfig))
}
