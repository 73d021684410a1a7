// Package scheduler implements the node selection policies compared by the simulator.
package scheduler

import (
	"errors"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
)

// ErrNoNodes is returned when a policy is asked to choose among zero nodes.
var ErrNoNodes = errors.New("no candidate nodes")

// Policy names as they appear in results.
const (
	DMITSName    = "DMITS"
	ProposedName = "Proposed"
	BaselineName = "Baseline"
)

// pickMax returns the node with the highest score. Equal scores go to the
// lowest node id, whatever the order of nodes.
func pickMax(nodes []*domain.Node, score func(*domain.Node) float64) (*domain.Node, error) {
	var best *domain.Node
	bestScore := 0.0

	for _, node := range nodes {
		if node == nil {
			continue
		}
		s := score(node)
		if best == nil || s > bestScore || (s == bestScore && node.ID < best.ID) {
			best, bestScore = node, s
		}
	}
	if best == nil {
		return nil, ErrNoNodes
	}
	return best, nil
}
