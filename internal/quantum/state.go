package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"qrlsim/internal/circuit"
)

// mat2 is a single-qubit operator in row-major order.
type mat2 [2][2]complex128

var (
	pauliX = mat2{{0, 1}, {1, 0}}
	pauliY = mat2{{0, -1i}, {1i, 0}}
	pauliZ = mat2{{1, 0}, {0, -1}}
)

func hadamard() mat2 {
	h := complex(1/math.Sqrt2, 0)
	return mat2{{h, h}, {h, -h}}
}

func rx(theta float64) mat2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return mat2{{c, s}, {s, c}}
}

func ry(theta float64) mat2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return mat2{{c, -s}, {s, c}}
}

func rz(theta float64) mat2 {
	return mat2{{cmplx.Exp(complex(0, -theta/2)), 0}, {0, cmplx.Exp(complex(0, theta/2))}}
}

func (m mat2) conj() mat2 {
	return mat2{
		{cmplx.Conj(m[0][0]), cmplx.Conj(m[0][1])},
		{cmplx.Conj(m[1][0]), cmplx.Conj(m[1][1])},
	}
}

// singleQubitMatrix returns the operator for a one-qubit gate.
func singleQubitMatrix(g circuit.Gate) (mat2, error) {
	switch g.Kind {
	case circuit.KindH:
		return hadamard(), nil
	case circuit.KindRX:
		return rx(g.Angle), nil
	case circuit.KindRY:
		return ry(g.Angle), nil
	case circuit.KindRZ:
		return rz(g.Angle), nil
	default:
		return mat2{}, fmt.Errorf("no single-qubit matrix for %s", g.Kind)
	}
}

// statevector holds 2^n amplitudes; qubit q is bit q of the basis index.
type statevector []complex128

func newStatevector(qubits int) statevector {
	s := make(statevector, 1<<qubits)
	s[0] = 1
	return s
}

func (s statevector) reset() {
	for i := range s {
		s[i] = 0
	}
	s[0] = 1
}

func (s statevector) apply1(q int, m mat2) {
	bit := 1 << q
	for i := range s {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a0, a1 := s[i], s[j]
		s[i] = m[0][0]*a0 + m[0][1]*a1
		s[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

func (s statevector) applyCX(control, target int) {
	cbit, tbit := 1<<control, 1<<target
	for i := range s {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			s[i], s[j] = s[j], s[i]
		}
	}
}

func (s statevector) applyGate(g circuit.Gate) error {
	if g.Kind == circuit.KindCX {
		s.applyCX(g.Control, g.Target)
		return nil
	}
	m, err := singleQubitMatrix(g)
	if err != nil {
		return err
	}
	s.apply1(g.Target, m)
	return nil
}

func (s statevector) probabilities(out []float64) []float64 {
	if cap(out) < len(s) {
		out = make([]float64, len(s))
	}
	out = out[:len(s)]
	for i, a := range s {
		out[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

// density is a 2^n x 2^n density matrix stored row-major.
type density struct {
	dim  int
	data []complex128
}

func newDensity(qubits int) *density {
	dim := 1 << qubits
	d := &density{dim: dim, data: make([]complex128, dim*dim)}
	d.data[0] = 1
	return d
}

// apply1 conjugates the state by m on qubit q: rho <- m rho m^dagger.
func (d *density) apply1(q int, m mat2) {
	bit := 1 << q
	n := d.dim
	for r := 0; r < n; r++ {
		if r&bit != 0 {
			continue
		}
		r1 := r | bit
		for c := 0; c < n; c++ {
			a0, a1 := d.data[r*n+c], d.data[r1*n+c]
			d.data[r*n+c] = m[0][0]*a0 + m[0][1]*a1
			d.data[r1*n+c] = m[1][0]*a0 + m[1][1]*a1
		}
	}
	mc := m.conj()
	for c := 0; c < n; c++ {
		if c&bit != 0 {
			continue
		}
		c1 := c | bit
		for r := 0; r < n; r++ {
			a0, a1 := d.data[r*n+c], d.data[r*n+c1]
			d.data[r*n+c] = mc[0][0]*a0 + mc[0][1]*a1
			d.data[r*n+c1] = mc[1][0]*a0 + mc[1][1]*a1
		}
	}
}

func (d *density) applyCX(control, target int) {
	cbit, tbit := 1<<control, 1<<target
	n := d.dim
	for r := 0; r < n; r++ {
		if r&cbit != 0 && r&tbit == 0 {
			r1 := r | tbit
			for c := 0; c < n; c++ {
				d.data[r*n+c], d.data[r1*n+c] = d.data[r1*n+c], d.data[r*n+c]
			}
		}
	}
	for c := 0; c < n; c++ {
		if c&cbit != 0 && c&tbit == 0 {
			c1 := c | tbit
			for r := 0; r < n; r++ {
				d.data[r*n+c], d.data[r*n+c1] = d.data[r*n+c1], d.data[r*n+c]
			}
		}
	}
}

func (d *density) applyGate(g circuit.Gate) error {
	if g.Kind == circuit.KindCX {
		d.applyCX(g.Control, g.Target)
		return nil
	}
	m, err := singleQubitMatrix(g)
	if err != nil {
		return err
	}
	d.apply1(g.Target, m)
	return nil
}

// depolarize applies (1-p) rho + p Tr_q(rho) (x) I/2 on qubit q.
func (d *density) depolarize(q int, p float64) {
	if p == 0 {
		return
	}
	bit := 1 << q
	n := d.dim
	keep := complex(1-p, 0)
	stay := complex(1-p/2, 0)
	swap := complex(p/2, 0)
	for r := 0; r < n; r++ {
		if r&bit != 0 {
			continue
		}
		r1 := r | bit
		for c := 0; c < n; c++ {
			if c&bit != 0 {
				continue
			}
			c1 := c | bit
			a00, a11 := d.data[r*n+c], d.data[r1*n+c1]
			d.data[r*n+c] = stay*a00 + swap*a11
			d.data[r1*n+c1] = stay*a11 + swap*a00
			d.data[r*n+c1] *= keep
			d.data[r1*n+c] *= keep
		}
	}
}

func (d *density) probabilities() []float64 {
	probs := make([]float64, d.dim)
	for i := range probs {
		probs[i] = real(d.data[i*d.dim+i])
	}
	return probs
}
