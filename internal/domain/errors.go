package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural problems in a network.
var (
	// ErrDuplicateNode is returned when adding a node whose name is taken.
	ErrDuplicateNode = errors.New("node with this name already exists")

	// ErrUnknownNode is returned when an edge references a missing node.
	ErrUnknownNode = errors.New("node not found")

	// ErrCycle is returned when an edge would close a directed cycle, or
	// when a topological order cannot be completed.
	ErrCycle = errors.New("cycle detected")

	// ErrIncompleteCPT is returned by strict CPT checks when a parent
	// combination has no entry.
	ErrIncompleteCPT = errors.New("incomplete conditional probability table")

	// ErrReservedName is returned when a node uses ReservedName.
	ErrReservedName = errors.New("node name is reserved")
)

// ReservedName is the variable of a zero-arity factor and cannot name a node
const ReservedName = "__dummy__"

// StructuralError wraps a structural sentinel with the operation and node
// that triggered it.
type StructuralError struct {
	Op   string
	Node string
	Err  error
}

// Error returns the error message.
func (e *StructuralError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Node, e.Err)
}

// Unwrap returns the underlying error.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err carries a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

func structuralErr(op, node string, err error) error {
	return &StructuralError{Op: op, Node: node, Err: err}
}
