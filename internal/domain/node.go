package domain

import (
	"fmt"
	"math"
)

// Default scoring parameters shared by the node model and the adaptive scheduler.
const (
	DefaultTrustWeight    = 0.5
	DefaultMobilityWeight = 0.5
	DefaultTrustIncrement = 0.05
	DefaultTrustDecrement = 0.10
)

// NodeAttributes carries the dataset-derived inputs used to build a Node.
type NodeAttributes struct {
	Speed       float64           // Last observed speed
	State       MobilityState     // Mobility state of the last observation
	Transitions *TransitionMatrix // Markov model; nil keeps Mobility as given
	Mobility    float64           // Mobility score used when Transitions is nil
	Trust       float64
	SocialTrust float64
	Centrality  float64
}

// nodeScores is the restorable part of a node.
type nodeScores struct {
	speed       float64
	state       MobilityState
	mobility    float64
	trust       float64
	socialTrust float64
	centrality  float64
	reliability float64
}

// Node is a mobile fog compute node. All scores stay within [0,1].
//
// A Node is owned by exactly one trial run at a time; clone it before handing
// it to a second scheduler.
type Node struct {
	ID          int
	Speed       float64
	State       MobilityState
	Transitions *TransitionMatrix

	Mobility    float64
	Trust       float64
	SocialTrust float64
	Centrality  float64
	Reliability float64

	initial nodeScores
}

// NewNode builds a node, derives its mobility and reliability scores with the
// default weights, and captures the result as its reset point.
func NewNode(id int, attrs NodeAttributes) *Node {
	n := &Node{
		ID:          id,
		Speed:       attrs.Speed,
		State:       attrs.State,
		Transitions: attrs.Transitions,
		Mobility:    clamp01(attrs.Mobility),
		Trust:       clamp01(attrs.Trust),
		SocialTrust: clamp01(attrs.SocialTrust),
		Centrality:  clamp01(attrs.Centrality),
	}
	n.ComputeMobilityScore()
	n.ComputeReliability(DefaultTrustWeight, DefaultMobilityWeight)
	n.Snapshot()
	return n
}

// Observe records a new speed sample and updates the explicit mobility state.
func (n *Node) Observe(speed float64) {
	n.Speed = speed
	n.State = Classify(speed)
}

// ComputeMobilityScore replaces Mobility with the stay probability of the
// node's transition model from its current state.
func (n *Node) ComputeMobilityScore() float64 {
	if n.Transitions != nil {
		n.Mobility = n.Transitions.StayProbability(n.State)
	}
	return n.Mobility
}

// ComputeReliability blends trust and mobility. The weights need not sum to 1;
// the result is clamped regardless.
func (n *Node) ComputeReliability(trustWeight, mobilityWeight float64) float64 {
	n.Reliability = clamp01(trustWeight*n.Trust + mobilityWeight*n.Mobility)
	return n.Reliability
}

// UpdateTrust applies an execution outcome to trust. Reliability is not
// recomputed here.
func (n *Node) UpdateTrust(success bool, increment, decrement float64) float64 {
	if success {
		n.Trust = clamp01(n.Trust + increment)
	} else {
		n.Trust = clamp01(n.Trust - decrement)
	}
	return n.Trust
}

// Snapshot makes the current scores the values restored by Reset.
func (n *Node) Snapshot() {
	n.initial = nodeScores{
		speed:       n.Speed,
		state:       n.State,
		mobility:    n.Mobility,
		trust:       n.Trust,
		socialTrust: n.SocialTrust,
		centrality:  n.Centrality,
		reliability: n.Reliability,
	}
}

// Reset restores the scores captured at construction (or the last Snapshot).
func (n *Node) Reset() {
	n.Speed = n.initial.speed
	n.State = n.initial.state
	n.Mobility = n.initial.mobility
	n.Trust = n.initial.trust
	n.SocialTrust = n.initial.socialTrust
	n.Centrality = n.initial.centrality
	n.Reliability = n.initial.reliability
}

// Clone returns a deep copy that can be mutated independently.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Transitions = n.Transitions.Clone()
	return &cp
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(id=%d, state=%s, trust=%.2f, mobility=%.3f, social=%.2f, centrality=%.2f, reliability=%.3f)",
		n.ID, n.State, n.Trust, n.Mobility, n.SocialTrust, n.Centrality, n.Reliability)
}

// CloneNodes deep-copies a node collection.
func CloneNodes(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
