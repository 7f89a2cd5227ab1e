package inference

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"bayesnet/internal/domain"
	"bayesnet/internal/factor"
)

// Elimination answers queries by variable elimination over CPT factors.
//
// Hidden variables are eliminated in reverse topological order. This is a
// simple heuristic and does not minimise the width of intermediate factors.
type Elimination struct {
	net    *domain.Network
	logger *zap.Logger

	stats Stats
}

// NewElimination creates a variable elimination engine over net
func NewElimination(net *domain.Network, opts ...Option) *Elimination {
	o := buildOptions(opts)
	return &Elimination{
		net:    net,
		logger: o.logger.With(zap.String("algorithm", AlgorithmElimination)),
		stats:  Stats{Algorithm: AlgorithmElimination},
	}
}

// Name returns the algorithm name
func (e *Elimination) Name() string { return AlgorithmElimination }

// Stats returns statistics of the last query
func (e *Elimination) Stats() Stats { return e.stats }

// Query returns P(variable | evidence)
func (e *Elimination) Query(variable string, evidence domain.Evidence) (Distribution, error) {
	start := time.Now()

	node, ok := e.net.Node(variable)
	if !ok {
		return nil, queryVariableNotFound(variable)
	}
	evidence = withoutQuery(evidence, variable)

	factors, err := e.initialFactors(evidence)
	if err != nil {
		return nil, err
	}
	maxSize, maxCount := factor.MaxSize(factors), len(factors)

	order, err := e.eliminationOrder(variable, evidence)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("elimination query",
		zap.String("variable", variable),
		zap.Stringer("evidence", evidence),
		zap.Int("factors", len(factors)),
		zap.Strings("order", order))

	for _, hidden := range order {
		before := len(factors)
		factors = factor.Eliminate(factors, hidden)
		maxCount = max(maxCount, len(factors))
		maxSize = max(maxSize, factor.MaxSize(factors))
		e.logger.Debug("eliminated",
			zap.String("variable", hidden),
			zap.Int("before", before),
			zap.Int("after", len(factors)))
	}

	final, err := factor.Multiply(factors)
	if err != nil {
		return nil, fmt.Errorf("failed to combine factors for %q: %w", variable, err)
	}
	maxSize = max(maxSize, final.Size())

	dist := e.extract(final, node, evidence)

	e.stats = Stats{
		Algorithm:       AlgorithmElimination,
		ExecutionTime:   time.Since(start),
		MaxFactorSize:   maxSize,
		MaxTotalFactors: maxCount,
	}
	e.logger.Debug("elimination done",
		zap.Int("max_factor_size", maxSize),
		zap.Int("max_total_factors", maxCount),
		zap.Duration("elapsed", e.stats.ExecutionTime))
	return dist, nil
}

// initialFactors builds one factor per node, restricted to the evidence
func (e *Elimination) initialFactors(evidence domain.Evidence) ([]*factor.Factor, error) {
	nodes := e.net.Nodes()
	factors := make([]*factor.Factor, 0, len(nodes))
	for _, node := range nodes {
		f, err := factor.FromCPT(e.net, node)
		if err != nil {
			return nil, err
		}
		if len(evidence) > 0 {
			f = f.Restrict(evidence)
		}
		factors = append(factors, f)
	}
	return factors, nil
}

// eliminationOrder returns the hidden variables in reverse topological order
func (e *Elimination) eliminationOrder(variable string, evidence domain.Evidence) ([]string, error) {
	topo, err := e.net.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	slices.Reverse(topo)

	order := make([]string, 0, len(topo))
	for _, name := range topo {
		if name != variable && !evidence.Has(name) {
			order = append(order, name)
		}
	}
	return order, nil
}

// extract reads the query distribution out of the final factor. A factor
// that no longer mentions the query variable carries no information about
// it, so the result is uniform.
func (e *Elimination) extract(final *factor.Factor, node *domain.Node, evidence domain.Evidence) Distribution {
	if final.IsScalar() || !final.Contains(node.Name) {
		return Uniform(node.Domain)
	}

	dist := make(Distribution, len(node.Domain))
	for _, value := range node.Domain {
		assignment := domain.Assignment{node.Name: value}
		for _, name := range final.Variables() {
			if v, ok := evidence[name]; ok && name != node.Name {
				assignment[name] = v
			}
		}
		dist[value] = final.Get(assignment)
	}
	return normalize(dist, node.Domain)
}
