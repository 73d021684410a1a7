package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeComputesScores(t *testing.T) {
	n := NewNode(3, NodeAttributes{Mobility: 0.8, Trust: 0.6, SocialTrust: 0.4, Centrality: 0.2})

	assert.Equal(t, 3, n.ID)
	assert.InDelta(t, 0.8, n.Mobility, 1e-12)
	assert.InDelta(t, 0.7, n.Reliability, 1e-12)
}

func TestNewNodeUsesTransitionModel(t *testing.T) {
	transitions, err := NewTransitionMatrix([3][3]float64{
		{1, 0, 0},
		{0.2, 0.3, 0.5},
		{0, 0, 1},
	})
	require.NoError(t, err)

	n := NewNode(1, NodeAttributes{Speed: 60, State: Medium, Transitions: transitions, Mobility: 0.99, Trust: 0.5})
	assert.InDelta(t, 0.5, n.Mobility, 1e-12)
	assert.InDelta(t, 0.5, n.Reliability, 1e-12)

	n.Observe(95)
	assert.Equal(t, Fast, n.State)
	assert.InDelta(t, 0.0, n.ComputeMobilityScore(), 1e-12)
}

func TestNewNodeClampsInputs(t *testing.T) {
	n := NewNode(1, NodeAttributes{Mobility: 2, Trust: 1.5, SocialTrust: -0.2, Centrality: 7})
	assert.Equal(t, 1.0, n.Mobility)
	assert.Equal(t, 1.0, n.Trust)
	assert.Equal(t, 0.0, n.SocialTrust)
	assert.Equal(t, 1.0, n.Centrality)
	assert.Equal(t, 1.0, n.Reliability)
}

func TestUpdateTrustSaturates(t *testing.T) {
	n := NewNode(1, NodeAttributes{Trust: 0.98, Mobility: 0.5})
	assert.Equal(t, 1.0, n.UpdateTrust(true, DefaultTrustIncrement, DefaultTrustDecrement))
	assert.Equal(t, 1.0, n.UpdateTrust(true, DefaultTrustIncrement, DefaultTrustDecrement))

	n = NewNode(2, NodeAttributes{Trust: 0.05, Mobility: 0.5})
	assert.Equal(t, 0.0, n.UpdateTrust(false, DefaultTrustIncrement, DefaultTrustDecrement))
	assert.Equal(t, 0.0, n.UpdateTrust(false, DefaultTrustIncrement, DefaultTrustDecrement))
}

func TestUpdateTrustLeavesReliability(t *testing.T) {
	n := NewNode(1, NodeAttributes{Trust: 0.5, Mobility: 0.5})
	before := n.Reliability
	n.UpdateTrust(false, DefaultTrustIncrement, DefaultTrustDecrement)
	assert.InDelta(t, 0.4, n.Trust, 1e-12)
	assert.Equal(t, before, n.Reliability)

	assert.InDelta(t, 0.45, n.ComputeReliability(DefaultTrustWeight, DefaultMobilityWeight), 1e-12)
}

func TestComputeReliabilityClamps(t *testing.T) {
	n := NewNode(1, NodeAttributes{Trust: 0.9, Mobility: 0.9})
	assert.Equal(t, 1.0, n.ComputeReliability(1, 1))
	assert.Equal(t, 0.0, n.ComputeReliability(-1, 0))
}

func TestNodeResetRestoresSnapshot(t *testing.T) {
	n := NewNode(1, NodeAttributes{Speed: 30, State: Slow, Trust: 0.5, Mobility: 0.6})
	n.UpdateTrust(true, 0.3, 0)
	n.ComputeReliability(1, 0)
	n.Observe(100)

	n.Reset()
	assert.Equal(t, 0.5, n.Trust)
	assert.InDelta(t, 0.55, n.Reliability, 1e-12)
	assert.Equal(t, Slow, n.State)
	assert.Equal(t, 30.0, n.Speed)
}

func TestNodeCloneIsIndependent(t *testing.T) {
	orig := NewNode(1, NodeAttributes{Trust: 0.5, Mobility: 0.5, Transitions: IdentityTransitions()})
	nodes := CloneNodes([]*Node{orig})
	require.Len(t, nodes, 1)

	cp := nodes[0]
	cp.UpdateTrust(true, 0.2, 0)
	assert.Equal(t, 0.5, orig.Trust)
	assert.InDelta(t, 0.7, cp.Trust, 1e-12)
	assert.NotSame(t, orig.Transitions, cp.Transitions)

	// The clone carries the original reset point.
	cp.Reset()
	assert.Equal(t, 0.5, cp.Trust)
}

func TestNodeString(t *testing.T) {
	n := NewNode(4, NodeAttributes{State: Fast, Trust: 0.25, Mobility: 0.5})
	assert.Contains(t, n.String(), "id=4")
	assert.Contains(t, n.String(), "state=FAST")
}

func TestComputeReliabilityWithOutOfRangeScores(t *testing.T) {
	weights := [][2]float64{{0.5, 0.5}, {1, 0}, {0, 1}, {0.9, 0.9}, {2, -1}}
	for _, scores := range [][2]float64{{1.5, -0.5}, {-0.5, 1.5}, {1.5, 1.5}, {-0.5, -0.5}} {
		for _, w := range weights {
			n := &Node{Trust: scores[0], Mobility: scores[1]}
			r := n.ComputeReliability(w[0], w[1])
			assert.GreaterOrEqual(t, r, 0.0)
			assert.LessOrEqual(t, r, 1.0)
		}
	}
}

func TestTrustClampsAtBounds(t *testing.T) {
	n := NewNode(1, NodeAttributes{Trust: 0.95})
	for i := 0; i < 3; i++ {
		assert.LessOrEqual(t, n.UpdateTrust(true, DefaultTrustIncrement, DefaultTrustDecrement), 1.0)
	}
	assert.Equal(t, 1.0, n.Trust)

	n = NewNode(2, NodeAttributes{Trust: 0.05})
	assert.Equal(t, 0.0, n.UpdateTrust(false, DefaultTrustIncrement, DefaultTrustDecrement))
}
