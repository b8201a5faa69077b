// Package quantum executes measured circuits under a depolarizing noise model.
//
// Backends are injected into the pipeline through the Backend interface. Each
// backend owns its random source; two backends built from equal seeds produce
// equal histograms for the same circuit.
package quantum

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"qrlsim/internal/circuit"
	"qrlsim/internal/model"
)

const (
	KindTrajectory = "trajectory"
	KindDensity    = "density"
)

const (
	maxStatevectorQubits = 20
	maxDensityQubits     = 10
)

// Backend runs a circuit for a number of shots and returns the histogram.
type Backend interface {
	Name() string
	Execute(ctx context.Context, c circuit.Circuit, noise NoiseModel, shots int) (Counts, error)
}

// NewBackend returns the backend registered under kind.
func NewBackend(kind string, rng *rand.Rand) (Backend, error) {
	if rng == nil {
		return nil, fmt.Errorf("backend %q requires a random source", kind)
	}
	switch kind {
	case "", KindTrajectory:
		return NewTrajectoryBackend(rng), nil
	case KindDensity:
		return NewDensityBackend(rng), nil
	default:
		return nil, fmt.Errorf("unsupported simulation backend: %s", kind)
	}
}

// Counts maps a classical bitstring (clbit 0 rightmost) to its occurrences.
type Counts map[string]int

func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Bitstrings returns the observed bitstrings in lexicographic order.
func (c Counts) Bitstrings() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// program is a circuit split into its unitary body and terminal measurements.
type program struct {
	qubits   int
	clbits   int
	body     []circuit.Gate
	measures []circuit.Gate
}

func compile(c circuit.Circuit, shots int) (program, error) {
	if shots < 1 {
		return program{}, fmt.Errorf("%w: shots must be positive, got %d", model.ErrConfig, shots)
	}
	p := program{qubits: c.Qubits()}
	if p.qubits < 1 {
		return program{}, fmt.Errorf("circuit has no qubits")
	}
	for i, g := range c.Gates() {
		for _, q := range g.Qubits() {
			if q < 0 || q >= p.qubits {
				return program{}, fmt.Errorf("instruction %d (%s) addresses qubit %d outside register of %d", i, g.Kind, q, p.qubits)
			}
		}
		if g.Kind == circuit.KindMeasure {
			if g.Clbit < 0 {
				return program{}, fmt.Errorf("instruction %d measures into negative clbit %d", i, g.Clbit)
			}
			p.measures = append(p.measures, g)
			if g.Clbit+1 > p.clbits {
				p.clbits = g.Clbit + 1
			}
			continue
		}
		if len(p.measures) > 0 {
			return program{}, fmt.Errorf("instruction %d (%s) follows a measurement; only terminal measurements are supported", i, g.Kind)
		}
		p.body = append(p.body, g)
	}
	if len(p.measures) == 0 {
		return program{}, fmt.Errorf("circuit has no measurements")
	}
	return p, nil
}

// outcome renders the classical register for basis state index.
func (p program) outcome(index int) string {
	bits := make([]byte, p.clbits)
	for i := range bits {
		bits[i] = '0'
	}
	for _, m := range p.measures {
		if index&(1<<m.Target) != 0 {
			bits[p.clbits-1-m.Clbit] = '1'
		} else {
			bits[p.clbits-1-m.Clbit] = '0'
		}
	}
	return string(bits)
}

// sampleIndex draws a basis index from a probability vector.
func sampleIndex(probs []float64, rng *rand.Rand) int {
	r := rng.Float64()
	acc := 0.0
	last := 0
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		acc += p
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

func normalize(probs []float64) error {
	sum := 0.0
	for i, p := range probs {
		if p < 0 {
			probs[i] = 0
			continue
		}
		sum += p
	}
	if sum <= 0 {
		return fmt.Errorf("%w: state has zero norm", model.ErrExecution)
	}
	for i := range probs {
		probs[i] /= sum
	}
	return nil
}
