package quantum

import (
	"context"
	"fmt"
	"math/rand"

	"qrlsim/internal/circuit"
	"qrlsim/internal/model"
)

// DensityBackend evolves the exact mixed state once and then draws every shot
// from the resulting outcome distribution.
type DensityBackend struct {
	rng *rand.Rand
}

func NewDensityBackend(rng *rand.Rand) *DensityBackend {
	return &DensityBackend{rng: rng}
}

func (b *DensityBackend) Name() string {
	return KindDensity
}

// Distribution returns the exact probability of every classical bitstring.
func (b *DensityBackend) Distribution(ctx context.Context, c circuit.Circuit, noise NoiseModel) (map[string]float64, error) {
	prog, probs, err := b.evolve(ctx, c, noise, 1)
	if err != nil {
		return nil, err
	}
	dist := make(map[string]float64)
	for i, p := range probs {
		if p > 0 {
			dist[prog.outcome(i)] += p
		}
	}
	return dist, nil
}

func (b *DensityBackend) Execute(ctx context.Context, c circuit.Circuit, noise NoiseModel, shots int) (Counts, error) {
	prog, probs, err := b.evolve(ctx, c, noise, shots)
	if err != nil {
		return nil, err
	}
	counts := make(Counts)
	for shot := 0; shot < shots; shot++ {
		counts[prog.outcome(sampleIndex(probs, b.rng))]++
	}
	return counts, nil
}

func (b *DensityBackend) evolve(ctx context.Context, c circuit.Circuit, noise NoiseModel, shots int) (program, []float64, error) {
	if err := noise.validate(); err != nil {
		return program{}, nil, err
	}
	prog, err := compile(c, shots)
	if err != nil {
		return program{}, nil, err
	}
	if prog.qubits > maxDensityQubits {
		return program{}, nil, fmt.Errorf("%w: %d qubits exceeds density-matrix limit of %d", model.ErrExecution, prog.qubits, maxDensityQubits)
	}

	rho := newDensity(prog.qubits)
	for i, g := range prog.body {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return program{}, nil, fmt.Errorf("%w: stopped at instruction %d: %w", model.ErrExecution, i, err)
			}
		}
		if err := rho.applyGate(g); err != nil {
			return program{}, nil, fmt.Errorf("%w: %w", model.ErrExecution, err)
		}
		if noise.Applies(g.Kind) {
			for _, q := range g.Qubits() {
				rho.depolarize(q, noise.Depolarizing)
			}
		}
	}

	probs := rho.probabilities()
	if err := normalize(probs); err != nil {
		return program{}, nil, err
	}
	return prog, probs, nil
}
