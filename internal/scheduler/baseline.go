package scheduler

import "github.com/ZanzyTHEbar/vfogsim/internal/domain"

// Baseline always picks the node with the highest mobility score. It ignores
// trust and reliability and never learns, so every task lands on the same node.
type Baseline struct{}

// NewBaseline creates the mobility-only policy.
func NewBaseline() *Baseline { return &Baseline{} }

func (b *Baseline) Name() string { return BaselineName }

// SelectNode returns the most mobile node, ties to the lowest id.
func (b *Baseline) SelectNode(_ *domain.Task, nodes []*domain.Node) (*domain.Node, error) {
	return pickMax(nodes, func(n *domain.Node) float64 { return n.Mobility })
}

func (b *Baseline) OnTaskResult(*domain.Node, *domain.Task, bool) {}
