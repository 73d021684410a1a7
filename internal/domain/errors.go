package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph  = errors.New("invalid task graph")
	ErrCycleDetected = errors.New("cycle detected")
)

// GraphError wraps task graph construction failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []int) error {
	if len(path) == 0 {
		return &GraphError{Kind: ErrCycleDetected}
	}
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprint(id)
	}
	return &GraphError{Kind: ErrCycleDetected, Msg: "tasks " + strings.Join(parts, " -> ")}
}
