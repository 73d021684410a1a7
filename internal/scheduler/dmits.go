package scheduler

import "github.com/ZanzyTHEbar/vfogsim/internal/domain"

// DMITSWeights parameterises the static DMITS utility.
type DMITSWeights struct {
	Mobility        float64 `json:"mobility"`
	SocialTrust     float64 `json:"socialTrust"`
	Centrality      float64 `json:"centrality"`
	DependencyBonus float64 `json:"dependencyBonus"` // Per declared dependency
}

// DefaultDMITSWeights returns the weights of the published DMITS scheme.
func DefaultDMITSWeights() DMITSWeights {
	return DMITSWeights{
		Mobility:        0.5,
		SocialTrust:     0.45,
		Centrality:      0.05,
		DependencyBonus: 0.05,
	}
}

// DMITS scores nodes on fixed attributes and never learns from outcomes.
type DMITS struct {
	weights DMITSWeights
}

// NewDMITS creates the static utility policy.
func NewDMITS(weights DMITSWeights) *DMITS {
	return &DMITS{weights: weights}
}

func (d *DMITS) Name() string { return DMITSName }

// Utility is (wm*mobility + ws*social + wc*centrality) scaled by the task's
// dependency bonus. The bonus multiplies every node equally, so it never
// changes which node wins.
func (d *DMITS) Utility(task *domain.Task, node *domain.Node) float64 {
	base := d.weights.Mobility*node.Mobility +
		d.weights.SocialTrust*node.SocialTrust +
		d.weights.Centrality*node.Centrality
	deps := 0
	if task != nil {
		deps = len(task.Dependencies)
	}
	return base * (1 + d.weights.DependencyBonus*float64(deps))
}

// SelectNode returns the node with maximum utility, ties to the lowest id.
func (d *DMITS) SelectNode(task *domain.Task, nodes []*domain.Node) (*domain.Node, error) {
	return pickMax(nodes, func(n *domain.Node) float64 { return d.Utility(task, n) })
}

// OnTaskResult is a no-op: DMITS never learns from outcomes.
func (d *DMITS) OnTaskResult(*domain.Node, *domain.Task, bool) {}
