package quantum

import (
	"fmt"
	"math"

	"qrlsim/internal/circuit"
	"qrlsim/internal/model"
)

// NoiseModel attaches a single-qubit depolarizing channel of probability
// Depolarizing to every instance of the listed gate kinds. On a two-qubit gate
// the channel is applied independently to each operand after the gate.
type NoiseModel struct {
	Depolarizing float64
	kinds        map[circuit.Kind]bool
}

// NewDepolarizingNoise validates p and binds it to kinds.
func NewDepolarizingNoise(p float64, kinds ...circuit.Kind) (NoiseModel, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return NoiseModel{}, fmt.Errorf("%w: depolarizing probability %v outside [0, 1]", model.ErrNumericDomain, p)
	}
	m := NoiseModel{Depolarizing: p, kinds: make(map[circuit.Kind]bool, len(kinds))}
	for _, k := range kinds {
		if !k.Unitary() {
			return NoiseModel{}, fmt.Errorf("noise cannot attach to %s", k)
		}
		m.kinds[k] = true
	}
	return m, nil
}

// Ideal is the noiseless model.
func Ideal() NoiseModel {
	return NoiseModel{}
}

// Applies reports whether gates of kind k carry the channel.
func (m NoiseModel) Applies(k circuit.Kind) bool {
	return m.Depolarizing > 0 && m.kinds[k]
}

func (m NoiseModel) validate() error {
	if math.IsNaN(m.Depolarizing) || m.Depolarizing < 0 || m.Depolarizing > 1 {
		return fmt.Errorf("%w: depolarizing probability %v outside [0, 1]", model.ErrNumericDomain, m.Depolarizing)
	}
	return nil
}
