package domain

import "fmt"

// Transition moves a task to a new status if the lifecycle allows it:
//
//	PENDING -> READY -> RUNNING -> COMPLETED | FAILED
//	RUNNING -> READY (failed attempt with retries left)
//
// Terminal states are permanent.
func (t *Task) Transition(to TaskStatus) error {
	if !isAllowedTransition(t.Status, to) {
		return fmt.Errorf("disallowed transition for task %d: %s -> %s", t.ID, t.Status, to)
	}
	t.Status = to
	return nil
}

func isAllowedTransition(from, to TaskStatus) bool {
	switch from {
	case Pending:
		return to == Ready
	case Ready:
		return to == Running
	case Running:
		return to == Completed || to == Failed || to == Ready
	default:
		return false
	}
}
