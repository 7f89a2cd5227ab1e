package inference

import (
	"errors"
	"fmt"
)

// ErrQueryVariableNotFound is returned when the query variable is not a node
// of the network
var ErrQueryVariableNotFound = errors.New("query variable not found")

// ErrUnknownAlgorithm is returned by New for an unrecognised algorithm name
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// QueryError reports a query that cannot be answered on the network
type QueryError struct {
	Variable string
	Err      error
}

// Error returns the error message
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Variable, e.Err)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	return e.Err
}

func queryVariableNotFound(name string) error {
	return &QueryError{Variable: name, Err: ErrQueryVariableNotFound}
}
