package scheduler

import "github.com/ZanzyTHEbar/vfogsim/internal/domain"

// ProposedParams configures the trust-adaptive policy.
type ProposedParams struct {
	TrustWeight    float64 `json:"trustWeight"`
	MobilityWeight float64 `json:"mobilityWeight"`
	TrustIncrement float64 `json:"trustIncrement"`
	TrustDecrement float64 `json:"trustDecrement"`
}

// DefaultProposedParams returns equal weighting with asymmetric trust updates.
func DefaultProposedParams() ProposedParams {
	return ProposedParams{
		TrustWeight:    domain.DefaultTrustWeight,
		MobilityWeight: domain.DefaultMobilityWeight,
		TrustIncrement: domain.DefaultTrustIncrement,
		TrustDecrement: domain.DefaultTrustDecrement,
	}
}

// Proposed selects on live reliability and feeds every outcome back into trust.
// Mobility stays at its trial-start value; only trust moves.
type Proposed struct {
	params ProposedParams
}

// NewProposed creates the trust-adaptive policy.
func NewProposed(params ProposedParams) *Proposed {
	return &Proposed{params: params}
}

func (p *Proposed) Name() string { return ProposedName }

// SelectNode refreshes reliability on every node, then returns the most
// reliable one, ties to the lowest id.
func (p *Proposed) SelectNode(_ *domain.Task, nodes []*domain.Node) (*domain.Node, error) {
	for _, n := range nodes {
		if n != nil {
			n.ComputeReliability(p.params.TrustWeight, p.params.MobilityWeight)
		}
	}
	return pickMax(nodes, func(n *domain.Node) float64 { return n.Reliability })
}

// OnTaskResult adjusts the node's trust by the outcome and recomputes its reliability.
func (p *Proposed) OnTaskResult(node *domain.Node, _ *domain.Task, success bool) {
	if node == nil {
		return
	}
	node.UpdateTrust(success, p.params.TrustIncrement, p.params.TrustDecrement)
	node.ComputeReliability(p.params.TrustWeight, p.params.MobilityWeight)
}
