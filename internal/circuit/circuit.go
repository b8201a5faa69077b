// Package circuit builds the fixed-topology, reward-parameterized circuit.
//
// The topology is always the same: a Hadamard layer and a linear CX chain, one
// RX/RY pair per reward, a closing RZ and a full measurement. Only the rotation
// angles and the number of RX/RY pairs depend on the reward sequence.
package circuit

import (
	"fmt"
	"strconv"
	"strings"

	"qrlsim/internal/config"
	"qrlsim/internal/model"
)

type Kind string

const (
	KindH       Kind = "h"
	KindCX      Kind = "cx"
	KindRX      Kind = "rx"
	KindRY      Kind = "ry"
	KindRZ      Kind = "rz"
	KindMeasure Kind = "measure"
)

// Unitary reports whether the kind is a gate (as opposed to a measurement).
func (k Kind) Unitary() bool {
	return k != KindMeasure
}

// Gate is one instruction. Control is -1 for single-qubit kinds; Clbit is only
// meaningful for measurements.
type Gate struct {
	Kind    Kind
	Control int
	Target  int
	Angle   float64
	Clbit   int
}

// Qubits lists the qubits the gate acts on, control first.
func (g Gate) Qubits() []int {
	if g.Control >= 0 {
		return []int{g.Control, g.Target}
	}
	return []int{g.Target}
}

func (g Gate) String() string {
	switch g.Kind {
	case KindCX:
		return fmt.Sprintf("cx q[%d],q[%d]", g.Control, g.Target)
	case KindRX, KindRY, KindRZ:
		return fmt.Sprintf("%s(%s) q[%d]", g.Kind, strconv.FormatFloat(g.Angle, 'g', -1, 64), g.Target)
	case KindMeasure:
		return fmt.Sprintf("measure q[%d] -> c[%d]", g.Target, g.Clbit)
	default:
		return fmt.Sprintf("%s q[%d]", g.Kind, g.Target)
	}
}

// Params are the constant topology parameters.
type Params struct {
	Qubits       int
	Theta0       float64
	Beta0        float64
	KCoef        float64
	ClosingQubit int
	ClosingAngle float64
}

func ParamsFromConfig(cfg config.CircuitConfig) Params {
	return Params{
		Qubits:       cfg.Qubits,
		Theta0:       cfg.Theta0,
		Beta0:        cfg.Beta0,
		KCoef:        cfg.KCoef,
		ClosingQubit: cfg.ClosingQubit,
		ClosingAngle: cfg.ClosingAngle,
	}
}

// Circuit is an immutable instruction list over a fixed register.
type Circuit struct {
	qubits int
	gates  []Gate
}

func (c Circuit) Qubits() int {
	return c.qubits
}

func (c Circuit) Len() int {
	return len(c.gates)
}

// Gates returns a copy of the instruction list.
func (c Circuit) Gates() []Gate {
	return append([]Gate(nil), c.gates...)
}

// Kinds returns the distinct unitary kinds in order of first appearance.
func (c Circuit) Kinds() []Kind {
	seen := make(map[Kind]bool, 5)
	kinds := make([]Kind, 0, 5)
	for _, g := range c.gates {
		if !g.Kind.Unitary() || seen[g.Kind] {
			continue
		}
		seen[g.Kind] = true
		kinds = append(kinds, g.Kind)
	}
	return kinds
}

// CountOps tallies instructions by kind.
func (c Circuit) CountOps() map[Kind]int {
	counts := make(map[Kind]int, 6)
	for _, g := range c.gates {
		counts[g.Kind]++
	}
	return counts
}

func (c Circuit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "qreg q[%d];\ncreg c[%d];\n", c.qubits, c.qubits)
	for _, g := range c.gates {
		b.WriteString(g.String())
		b.WriteString(";\n")
	}
	return b.String()
}

// Build assembles the circuit for a reward sequence. Reward j drives an RX on
// qubit j mod n and an RY on qubit (j+1) mod n, so long sequences wrap around
// the register and stack rotations on the same qubits.
func Build(p Params, rewards []model.Reward) (Circuit, error) {
	if p.Qubits < 2 {
		return Circuit{}, fmt.Errorf("%w: circuit needs at least 2 qubits, got %d", model.ErrConfig, p.Qubits)
	}
	if p.ClosingQubit < 0 || p.ClosingQubit >= p.Qubits {
		return Circuit{}, fmt.Errorf("%w: closing qubit %d outside register of %d", model.ErrConfig, p.ClosingQubit, p.Qubits)
	}

	n := p.Qubits
	gates := make([]Gate, 0, 2*n+2*len(rewards)+1)

	for q := 0; q < n; q++ {
		gates = append(gates, Gate{Kind: KindH, Control: -1, Target: q})
	}
	for k := 0; k < n-1; k++ {
		gates = append(gates, Gate{Kind: KindCX, Control: k, Target: k + 1})
	}

	for j, r := range rewards {
		if !r.Valid() {
			return Circuit{}, fmt.Errorf("invalid reward %v at position %d", r, j)
		}
		v := float64(r.Int())
		gates = append(gates,
			Gate{Kind: KindRX, Control: -1, Target: j % n, Angle: p.Theta0 + p.KCoef*v},
			Gate{Kind: KindRY, Control: -1, Target: (j + 1) % n, Angle: p.Beta0 - p.KCoef*v},
		)
	}

	gates = append(gates, Gate{Kind: KindRZ, Control: -1, Target: p.ClosingQubit, Angle: p.ClosingAngle})
	for q := 0; q < n; q++ {
		gates = append(gates, Gate{Kind: KindMeasure, Control: -1, Target: q, Clbit: q})
	}

	return Circuit{qubits: n, gates: gates}, nil
}
