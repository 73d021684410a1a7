package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		speed float64
		want  MobilityState
	}{
		{0, Slow},
		{39.99, Slow},
		{40, Medium},
		{79.99, Medium},
		{80, Fast},
		{140, Fast},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.speed), "speed %v", tt.speed)
	}
}

func TestMobilityStateString(t *testing.T) {
	assert.Equal(t, "SLOW", Slow.String())
	assert.Equal(t, "MEDIUM", Medium.String())
	assert.Equal(t, "FAST", Fast.String())
	assert.Equal(t, "MobilityState(7)", MobilityState(7).String())
}

func TestEstimateTransitions(t *testing.T) {
	// SLOW -> MEDIUM -> FAST -> SLOW -> SLOW
	m := EstimateTransitions([]float64{30, 50, 90, 30, 20})

	assert.Equal(t, []float64{0.5, 0.5, 0}, m.Row(Slow))
	assert.Equal(t, []float64{0, 0, 1}, m.Row(Medium))
	assert.Equal(t, []float64{1, 0, 0}, m.Row(Fast))

	assert.InDelta(t, 1.0, m.StayProbability(Slow), 1e-12)
	assert.InDelta(t, 0.0, m.StayProbability(Medium), 1e-12)
	assert.InDelta(t, 1.0, m.StayProbability(Fast), 1e-12)
}

func TestEstimateTransitionsWithoutHistory(t *testing.T) {
	for _, speeds := range [][]float64{nil, {55}} {
		m := EstimateTransitions(speeds)
		for s := Slow; s <= Fast; s++ {
			assert.Equal(t, 1.0, m.Probability(s, s))
		}
		assert.Equal(t, 1.0, m.StayProbability(Slow))
		assert.Equal(t, 1.0, m.StayProbability(Medium))
		assert.Equal(t, 0.0, m.StayProbability(Fast))
	}
}

func TestEstimateTransitionsRowsAreStochastic(t *testing.T) {
	m := EstimateTransitions([]float64{10, 45, 85, 85, 60, 30, 95, 41, 39})
	for s := Slow; s <= Fast; s++ {
		sum := 0.0
		for _, p := range m.Row(s) {
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %s", s)
	}
}

func TestNewTransitionMatrix(t *testing.T) {
	m, err := NewTransitionMatrix([3][3]float64{
		{0.7, 0.2, 0.1},
		{0.3, 0.4, 0.3},
		{0.1, 0.3, 0.6},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, m.StayProbability(Slow), 1e-12)
	assert.InDelta(t, 0.4, m.StayProbability(Fast), 1e-12)

	_, err = NewTransitionMatrix([3][3]float64{{0.5, 0.2, 0.1}, {1, 0, 0}, {0, 0, 1}})
	assert.ErrorContains(t, err, "row SLOW")

	_, err = NewTransitionMatrix([3][3]float64{{1.5, -0.5, 0}, {1, 0, 0}, {0, 0, 1}})
	assert.ErrorContains(t, err, "not a probability")
}

func TestTransitionMatrixCopies(t *testing.T) {
	m := IdentityTransitions()
	row := m.Row(Slow)
	row[0] = 0
	assert.Equal(t, 1.0, m.Probability(Slow, Slow))

	cp := m.Clone()
	require.NotSame(t, m, cp)
	assert.Equal(t, m.Row(Medium), cp.Row(Medium))

	var nilMatrix *TransitionMatrix
	assert.Nil(t, nilMatrix.Clone())
	assert.Equal(t, 0.0, nilMatrix.StayProbability(Slow))
	assert.Equal(t, 0.0, m.Probability(MobilityState(-1), Slow))
}
