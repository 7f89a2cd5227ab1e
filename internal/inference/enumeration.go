package inference

import (
	"time"

	"go.uber.org/zap"

	"bayesnet/internal/domain"
)

// Enumeration answers queries by summing the full joint distribution over
// every hidden variable. Cost is exponential in the number of hidden
// variables; it serves as the reference the elimination engine is checked
// against.
type Enumeration struct {
	net    *domain.Network
	logger *zap.Logger

	stats Stats
	ops   int64
}

// NewEnumeration creates an enumeration engine over net
func NewEnumeration(net *domain.Network, opts ...Option) *Enumeration {
	o := buildOptions(opts)
	return &Enumeration{
		net:    net,
		logger: o.logger.With(zap.String("algorithm", AlgorithmEnumeration)),
		stats:  Stats{Algorithm: AlgorithmEnumeration},
	}
}

// Name returns the algorithm name
func (e *Enumeration) Name() string { return AlgorithmEnumeration }

// Stats returns statistics of the last query
func (e *Enumeration) Stats() Stats { return e.stats }

// Query returns P(variable | evidence)
func (e *Enumeration) Query(variable string, evidence domain.Evidence) (Distribution, error) {
	start := time.Now()
	e.ops = 0

	node, ok := e.net.Node(variable)
	if !ok {
		return nil, queryVariableNotFound(variable)
	}

	vars, err := e.variableOrder()
	if err != nil {
		return nil, err
	}

	e.logger.Debug("enumeration query",
		zap.String("variable", variable),
		zap.Stringer("evidence", evidence),
		zap.Strings("order", vars))

	dist := make(Distribution, len(node.Domain))
	for _, value := range node.Domain {
		dist[value] = e.enumerateAll(vars, evidence.With(variable, value))
		e.logger.Debug("unnormalized",
			zap.Stringer("value", value),
			zap.Float64("p", dist[value]))
	}
	dist = normalize(dist, node.Domain)

	e.stats = Stats{
		Algorithm:       AlgorithmEnumeration,
		ExecutionTime:   time.Since(start),
		OperationsCount: e.ops,
	}
	e.logger.Debug("enumeration done",
		zap.Int64("operations", e.ops),
		zap.Duration("elapsed", e.stats.ExecutionTime))
	return dist, nil
}

// enumerateAll sums the product of CPT entries over every unassigned
// variable in vars
func (e *Enumeration) enumerateAll(vars []string, assignment domain.Assignment) float64 {
	e.ops++
	if len(vars) == 0 {
		return 1.0
	}

	name, rest := vars[0], vars[1:]
	node, _ := e.net.Node(name)

	if value, observed := assignment[name]; observed {
		p := node.Probability(value, assignment.Project(node.Parents))
		return p * e.enumerateAll(rest, assignment)
	}

	var total float64
	for _, value := range node.Domain {
		extended := assignment.With(name, value)
		p := node.Probability(value, extended.Project(node.Parents))
		total += p * e.enumerateAll(rest, extended)
	}
	return total
}

// variableOrder returns the network variables in insertion order. When a
// child was inserted before one of its parents the topological order is
// used instead, so parent values are always bound before a CPT lookup.
func (e *Enumeration) variableOrder() ([]string, error) {
	vars := e.net.Variables()
	seen := make(map[string]bool, len(vars))
	for _, name := range vars {
		node, _ := e.net.Node(name)
		for _, parent := range node.Parents {
			if !seen[parent] {
				return e.net.TopologicalOrder()
			}
		}
		seen[name] = true
	}
	return vars, nil
}
