package ports

import "github.com/ZanzyTHEbar/vfogsim/internal/domain"

//go:generate go tool mockgen -destination=mocks/policy_mock.go -package=mocks github.com/ZanzyTHEbar/vfogsim/internal/ports Policy

// Policy chooses the node that runs a task and reacts to execution outcomes.
// Implementations may mutate the nodes they are given; the engine hands each
// policy its own copies.
type Policy interface {
	// Name identifies the policy in results and logs.
	Name() string
	// SelectNode picks one of nodes for task. It fails only when nodes is empty.
	SelectNode(task *domain.Task, nodes []*domain.Node) (*domain.Node, error)
	// OnTaskResult is called after every attempt, successful or not.
	OnTaskResult(node *domain.Node, task *domain.Task, success bool)
}
