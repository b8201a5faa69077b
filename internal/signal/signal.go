// Package signal turns window means into rewards and bounded error rates.
package signal

import (
	"fmt"
	"math"

	"qrlsim/internal/config"
	"qrlsim/internal/model"
)

// RewardMapper classifies a mean against a symmetric band around Reference.
type RewardMapper struct {
	Reference float64
	Epsilon   float64
}

func (m RewardMapper) Classify(mean float64) model.Reward {
	switch {
	case mean > m.Reference+m.Epsilon:
		return model.RewardUp
	case mean < m.Reference-m.Epsilon:
		return model.RewardDown
	default:
		return model.RewardFlat
	}
}

// ErrorRateModel maps a window's deviation from Reference to a gate error
// probability, linear in the deviation and clamped to [Base, Max].
type ErrorRateModel struct {
	Reference float64
	Base      float64
	Slope     float64
	Max       float64
}

func (m ErrorRateModel) Rate(mean float64) (deltaT, pError float64) {
	deltaT = math.Abs(mean - m.Reference)
	pError = math.Min(m.Base+m.Slope*deltaT, m.Max)
	if pError < m.Base {
		pError = m.Base
	}
	return deltaT, pError
}

func NewRewardMapper(cfg config.SignalConfig) RewardMapper {
	return RewardMapper{Reference: cfg.Reference, Epsilon: cfg.Epsilon}
}

func NewErrorRateModel(cfg config.SignalConfig) ErrorRateModel {
	return ErrorRateModel{
		Reference: cfg.Reference,
		Base:      cfg.BasePError,
		Slope:     cfg.Slope,
		Max:       cfg.MaxPError,
	}
}

// Derive applies both models to every window mean, preserving order.
func Derive(means []float64, rewards RewardMapper, rates ErrorRateModel) ([]model.WindowStat, error) {
	if len(means) == 0 {
		return nil, fmt.Errorf("%w: no window means to derive from", model.ErrConfig)
	}
	stats := make([]model.WindowStat, len(means))
	for i, mean := range means {
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return nil, fmt.Errorf("%w: window %d mean is not finite", model.ErrNumericDomain, i)
		}
		deltaT, pError := rates.Rate(mean)
		stats[i] = model.WindowStat{
			Offset: i,
			Mean:   mean,
			DeltaT: deltaT,
			Reward: rewards.Classify(mean),
			PError: pError,
		}
	}
	return stats, nil
}
