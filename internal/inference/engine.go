package inference

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"bayesnet/internal/domain"
)

// Algorithm names accepted by New
const (
	AlgorithmEnumeration = "enumeration"
	AlgorithmElimination = "variable_elimination"
)

// Engine computes posterior distributions over a network.
//
// An engine keeps statistics for its last query, so a single instance must
// not serve concurrent queries. Create one engine per goroutine over the
// same read-only Network.
type Engine interface {
	// Name returns the algorithm name
	Name() string

	// Query returns P(variable | evidence), normalized over the variable's domain
	Query(variable string, evidence domain.Evidence) (Distribution, error)

	// Stats returns statistics of the last query
	Stats() Stats
}

// Stats describes the cost of the last query of an engine
type Stats struct {
	Algorithm       string        `json:"algorithm"`
	ExecutionTime   time.Duration `json:"execution_time_ns"`
	OperationsCount int64         `json:"operations_count,omitempty"`
	MaxFactorSize   int           `json:"max_factor_size,omitempty"`
	MaxTotalFactors int           `json:"max_total_factors,omitempty"`
}

// Option configures an engine
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for step tracing at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates an engine by algorithm name. "elimination" is accepted as an
// alias for variable elimination.
func New(algorithm string, net *domain.Network, opts ...Option) (Engine, error) {
	switch algorithm {
	case AlgorithmEnumeration:
		return NewEnumeration(net, opts...), nil
	case AlgorithmElimination, "elimination":
		return NewElimination(net, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// Algorithms returns the canonical algorithm names
func Algorithms() []string {
	return []string{AlgorithmEnumeration, AlgorithmElimination}
}

// MarginalProbability returns P(variable = value | evidence)
func MarginalProbability(e Engine, variable string, value domain.Value, evidence domain.Evidence) (float64, error) {
	dist, err := e.Query(variable, evidence)
	if err != nil {
		return 0, err
	}
	return dist[value], nil
}

// MostProbableValue returns the value of variable with the highest
// posterior probability. Ties go to the value listed first in the domain.
func MostProbableValue(e Engine, net *domain.Network, variable string, evidence domain.Evidence) (domain.Value, float64, error) {
	dist, err := e.Query(variable, evidence)
	if err != nil {
		return domain.Value{}, 0, err
	}
	node, ok := net.Node(variable)
	if !ok {
		return domain.Value{}, 0, queryVariableNotFound(variable)
	}
	best, bestP := domain.Value{}, -1.0
	for _, v := range node.Domain {
		if p := dist[v]; p > bestP {
			best, bestP = v, p
		}
	}
	return best, bestP, nil
}

// withoutQuery drops an observation of the query variable itself; both
// engines treat the query variable as free
func withoutQuery(evidence domain.Evidence, variable string) domain.Evidence {
	if !evidence.Has(variable) {
		return evidence
	}
	out := evidence.Clone()
	delete(out, variable)
	return out
}
