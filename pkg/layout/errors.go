package layout

import (
	"errors"
	"fmt"
)

var (
	ErrMissingHost   = errors.New("missing argument: host")
	ErrMissingConfig = errors.New("missing argument: config")
	ErrInvalidConfig = errors.New("invalid layout config")
	ErrNotIdle       = errors.New("layout is not idle")
	ErrRunning       = errors.New("layout is running")
	ErrDanglingEdge  = errors.New("edge references unknown node")
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrCommit        = errors.New("host commit failed")
	ErrUnknownEasing = errors.New("unknown easing")
)

// StructuralError reports a graph that cannot be laid out as given.
// It is returned before any iteration runs.
type StructuralError struct {
	Kind   error  // ErrDanglingEdge or ErrDuplicateNode
	EdgeID string // set for dangling edges
	NodeID string
}

func (e *StructuralError) Error() string {
	if e.Kind == ErrDanglingEdge {
		return fmt.Sprintf("structural integrity: edge %q: %v %q", e.EdgeID, e.Kind, e.NodeID)
	}
	return fmt.Sprintf("structural integrity: %v %q", e.Kind, e.NodeID)
}

func (e *StructuralError) Unwrap() error {
	return e.Kind
}
