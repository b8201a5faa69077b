package circuit

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlsim/internal/config"
	"qrlsim/internal/model"
)

func defaultParams() Params {
	return ParamsFromConfig(config.Default().Circuit)
}

func TestBuildPrefixChainAndSuffix(t *testing.T) {
	c, err := Build(defaultParams(), nil)
	require.NoError(t, err)

	gates := c.Gates()
	require.Len(t, gates, 4+3+1+4)
	for q := 0; q < 4; q++ {
		assert.Equal(t, Gate{Kind: KindH, Control: -1, Target: q}, gates[q])
	}
	for k := 0; k < 3; k++ {
		assert.Equal(t, Gate{Kind: KindCX, Control: k, Target: k + 1}, gates[4+k])
	}
	assert.Equal(t, Gate{Kind: KindRZ, Control: -1, Target: 2, Angle: math.Pi / 2}, gates[7])
	for q := 0; q < 4; q++ {
		assert.Equal(t, Gate{Kind: KindMeasure, Control: -1, Target: q, Clbit: q}, gates[8+q])
	}
}

func TestBuildRotationBlockWrapsQubits(t *testing.T) {
	rewards := []model.Reward{model.RewardUp, model.RewardDown, model.RewardFlat, model.RewardUp, model.RewardDown, model.RewardFlat}
	c, err := Build(defaultParams(), rewards)
	require.NoError(t, err)

	gates := c.Gates()
	block := gates[7 : 7+2*len(rewards)]
	for j, r := range rewards {
		rx, ry := block[2*j], block[2*j+1]
		v := float64(r.Int())

		assert.Equal(t, KindRX, rx.Kind)
		assert.Equal(t, j%4, rx.Target)
		assert.InDelta(t, 2.10+0.1*v, rx.Angle, 1e-12)

		assert.Equal(t, KindRY, ry.Kind)
		assert.Equal(t, (j+1)%4, ry.Target)
		assert.InDelta(t, 1.20-0.1*v, ry.Angle, 1e-12)
	}
	assert.Equal(t, 0, block[8].Target, "position 4 wraps back to qubit 0")
}

func TestBuildCountsForReferenceRun(t *testing.T) {
	rewards := make([]model.Reward, 91)
	c, err := Build(defaultParams(), rewards)
	require.NoError(t, err)

	ops := c.CountOps()
	assert.Equal(t, 4, ops[KindH])
	assert.Equal(t, 3, ops[KindCX])
	assert.Equal(t, 91, ops[KindRX])
	assert.Equal(t, 91, ops[KindRY])
	assert.Equal(t, 1, ops[KindRZ])
	assert.Equal(t, 4, ops[KindMeasure])
	assert.Equal(t, []Kind{KindH, KindCX, KindRX, KindRY, KindRZ}, c.Kinds())
	assert.Equal(t, 4, c.Qubits())
}

func TestBuildIsDeterministicAndImmutable(t *testing.T) {
	rewards := []model.Reward{model.RewardUp, model.RewardDown}
	a, err := Build(defaultParams(), rewards)
	require.NoError(t, err)
	b, err := Build(defaultParams(), rewards)
	require.NoError(t, err)
	assert.Equal(t, a.Gates(), b.Gates())

	gates := a.Gates()
	gates[0].Target = 3
	assert.Equal(t, 0, a.Gates()[0].Target)
}

func TestBuildGeneralizesChain(t *testing.T) {
	p := defaultParams()
	p.Qubits = 6
	c, err := Build(p, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, c.CountOps()[KindCX])
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	_, err := Build(defaultParams(), []model.Reward{model.Reward(3)})
	require.Error(t, err)

	p := defaultParams()
	p.Qubits = 1
	_, err = Build(p, nil)
	require.Error(t, err)

	p = defaultParams()
	p.ClosingQubit = 4
	_, err = Build(p, nil)
	require.Error(t, err)
}

func TestCircuitString(t *testing.T) {
	c, err := Build(defaultParams(), []model.Reward{model.RewardUp})
	require.NoError(t, err)

	text := c.String()
	beta0, k := 1.20, 0.1
	assert.True(t, strings.HasPrefix(text, "qreg q[4];\ncreg c[4];\nh q[0];\n"))
	assert.Contains(t, text, "cx q[2],q[3];\n")
	assert.Contains(t, text, "rx(2.2) q[0];\n")
	assert.Contains(t, text, Gate{Kind: KindRY, Control: -1, Target: 1, Angle: beta0 - k}.String()+";\n")
	assert.Contains(t, text, "measure q[3] -> c[3];\n")
}
