package storage

import "qrlsim/internal/model"

func sampleRun(id, createdAt string) model.RunRecord {
	return Versioned(model.RunRecord{
		RunID:        id,
		CreatedAtUTC: createdAt,
		Seed:         7,
		SimSeed:      8,
		Backend:      "trajectory",
		Source:       "synthetic.gauss.n4096.seed1",
		CycleIndices: []int{3, 1, 4},
		Windows: []model.WindowStat{
			{Offset: 0, Mean: 2.725, DeltaT: 0, Reward: model.RewardFlat, PError: 0.05},
		},
		MeanPError: 0.05,
		Fidelity:   0.95,
		Shots:      16,
		Rewards: []model.RewardCount{
			{Reward: model.RewardUp, Count: 0, Percent: 0},
			{Reward: model.RewardDown, Count: 0, Percent: 0},
			{Reward: model.RewardFlat, Count: 1, Percent: 100},
		},
		Histogram: []model.HistogramRow{{Bitstring: "0000", Count: 16}},
	})
}
