package quantum

import (
	"context"
	"fmt"
	"math/rand"

	"qrlsim/internal/circuit"
	"qrlsim/internal/model"
)

const cancelCheckInterval = 64

// TrajectoryBackend simulates each shot as an independent statevector
// trajectory. After every noisy gate each operand qubit suffers, with the
// depolarizing probability, a uniformly chosen Pauli from {I, X, Y, Z}.
type TrajectoryBackend struct {
	rng *rand.Rand
}

func NewTrajectoryBackend(rng *rand.Rand) *TrajectoryBackend {
	return &TrajectoryBackend{rng: rng}
}

func (b *TrajectoryBackend) Name() string {
	return KindTrajectory
}

func (b *TrajectoryBackend) Execute(ctx context.Context, c circuit.Circuit, noise NoiseModel, shots int) (Counts, error) {
	if err := noise.validate(); err != nil {
		return nil, err
	}
	prog, err := compile(c, shots)
	if err != nil {
		return nil, err
	}
	if prog.qubits > maxStatevectorQubits {
		return nil, fmt.Errorf("%w: %d qubits exceeds statevector limit of %d", model.ErrExecution, prog.qubits, maxStatevectorQubits)
	}

	state := newStatevector(prog.qubits)
	probs := make([]float64, len(state))
	paulis := [...]mat2{pauliX, pauliY, pauliZ}
	counts := make(Counts)

	for shot := 0; shot < shots; shot++ {
		if shot%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: stopped after %d of %d shots: %w", model.ErrExecution, shot, shots, err)
			}
		}

		state.reset()
		for _, g := range prog.body {
			if err := state.applyGate(g); err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrExecution, err)
			}
			if !noise.Applies(g.Kind) {
				continue
			}
			for _, q := range g.Qubits() {
				if b.rng.Float64() >= noise.Depolarizing {
					continue
				}
				// Index 0 is the identity.
				if k := b.rng.Intn(4); k > 0 {
					state.apply1(q, paulis[k-1])
				}
			}
		}

		probs = state.probabilities(probs)
		if err := normalize(probs); err != nil {
			return nil, err
		}
		counts[prog.outcome(sampleIndex(probs, b.rng))]++
	}
	return counts, nil
}
