package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MobilityState is the discretised speed regime of a node.
type MobilityState int

const (
	// Slow covers speeds below SlowSpeedLimit.
	Slow MobilityState = iota
	// Medium covers speeds in [SlowSpeedLimit, MediumSpeedLimit).
	Medium
	// Fast covers speeds at or above MediumSpeedLimit.
	Fast
)

// NumMobilityStates is the size of the mobility state space.
const NumMobilityStates = 3

const (
	SlowSpeedLimit   = 40.0
	MediumSpeedLimit = 80.0
)

const rowSumTolerance = 1e-9

// String returns the upper-case state label used in datasets and logs.
func (s MobilityState) String() string {
	switch s {
	case Slow:
		return "SLOW"
	case Medium:
		return "MEDIUM"
	case Fast:
		return "FAST"
	default:
		return fmt.Sprintf("MobilityState(%d)", int(s))
	}
}

func (s MobilityState) valid() bool {
	return s >= Slow && s <= Fast
}

// Classify maps a speed onto its mobility band. Each band includes its lower bound.
func Classify(speed float64) MobilityState {
	switch {
	case speed < SlowSpeedLimit:
		return Slow
	case speed < MediumSpeedLimit:
		return Medium
	default:
		return Fast
	}
}

// TransitionMatrix is a row-stochastic Markov transition matrix over mobility states.
// It is immutable after construction.
type TransitionMatrix struct {
	p *mat.Dense
}

// IdentityTransitions returns the all-self-loop matrix used for nodes without history.
func IdentityTransitions() *TransitionMatrix {
	p := mat.NewDense(NumMobilityStates, NumMobilityStates, nil)
	for i := 0; i < NumMobilityStates; i++ {
		p.Set(i, i, 1)
	}
	return &TransitionMatrix{p: p}
}

// NewTransitionMatrix validates and wraps a precomputed matrix.
// Entries must be non-negative and each row must sum to 1.
func NewTransitionMatrix(rows [NumMobilityStates][NumMobilityStates]float64) (*TransitionMatrix, error) {
	p := mat.NewDense(NumMobilityStates, NumMobilityStates, nil)
	for i, row := range rows {
		sum := 0.0
		for j, v := range row {
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("transition %s->%s is not a probability: %v", MobilityState(i), MobilityState(j), v)
			}
			sum += v
			p.Set(i, j, v)
		}
		if math.Abs(sum-1) > rowSumTolerance {
			return nil, fmt.Errorf("row %s sums to %v, want 1", MobilityState(i), sum)
		}
	}
	return &TransitionMatrix{p: p}, nil
}

// EstimateTransitions counts consecutive state transitions in a speed trace and
// normalises every row. Rows without observations fall back to a self-loop.
func EstimateTransitions(speeds []float64) *TransitionMatrix {
	counts := mat.NewDense(NumMobilityStates, NumMobilityStates, nil)
	for i := 1; i < len(speeds); i++ {
		from, to := Classify(speeds[i-1]), Classify(speeds[i])
		counts.Set(int(from), int(to), counts.At(int(from), int(to))+1)
	}

	for i := 0; i < NumMobilityStates; i++ {
		row := counts.RawRowView(i)
		total := 0.0
		for _, c := range row {
			total += c
		}
		if total == 0 {
			row[i] = 1
			continue
		}
		for j := range row {
			row[j] /= total
		}
	}
	return &TransitionMatrix{p: counts}
}

// Probability returns P[from][to].
func (m *TransitionMatrix) Probability(from, to MobilityState) float64 {
	if m == nil || !from.valid() || !to.valid() {
		return 0
	}
	return m.p.At(int(from), int(to))
}

// Row returns a copy of the outgoing distribution of a state.
func (m *TransitionMatrix) Row(from MobilityState) []float64 {
	out := make([]float64, NumMobilityStates)
	if m == nil || !from.valid() {
		return out
	}
	copy(out, m.p.RawRowView(int(from)))
	return out
}

// StayProbability is the probability mass of moving from current into a
// non-fast state (Slow or Medium) on the next step.
func (m *TransitionMatrix) StayProbability(current MobilityState) float64 {
	return clamp01(m.Probability(current, Slow) + m.Probability(current, Medium))
}

// Clone returns an independent copy of the matrix.
func (m *TransitionMatrix) Clone() *TransitionMatrix {
	if m == nil {
		return nil
	}
	return &TransitionMatrix{p: mat.DenseCopyOf(m.p)}
}

// String renders the matrix one row per line.
func (m *TransitionMatrix) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", mat.Formatted(m.p, mat.Squeeze()))
}
