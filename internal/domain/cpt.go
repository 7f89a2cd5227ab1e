package domain

import (
	"fmt"
	"math"
)

// NormalizationTolerance is the slack allowed when checking that a
// distribution sums to 1
const NormalizationTolerance = 1e-10

// CPTEntry is one row of a conditional probability table: the distribution
// of a node given one assignment of its parents
type CPTEntry struct {
	ParentValues  Assignment
	Probabilities map[Value]float64
}

// NewCPTEntry creates an entry, copying both maps
func NewCPTEntry(parentValues Assignment, probabilities map[Value]float64) CPTEntry {
	probs := make(map[Value]float64, len(probabilities))
	for k, v := range probabilities {
		probs[k] = v
	}
	return CPTEntry{
		ParentValues:  parentValues.Clone(),
		Probabilities: probs,
	}
}

// Matches reports whether the entry is consistent with the given partial
// assignment. Parents missing from the assignment act as wildcards.
func (e CPTEntry) Matches(assignment Assignment) bool {
	for parent, value := range e.ParentValues {
		if got, ok := assignment[parent]; ok && got != value {
			return false
		}
	}
	return true
}

// Probability returns the probability of value, 0 when absent
func (e CPTEntry) Probability(value Value) float64 {
	return e.Probabilities[value]
}

// Total returns the sum of the entry's probabilities
func (e CPTEntry) Total() float64 {
	var total float64
	for _, p := range e.Probabilities {
		total += p
	}
	return total
}

// IsValid reports whether the probabilities sum to 1
func (e CPTEntry) IsValid() bool {
	return math.Abs(e.Total()-1.0) < NormalizationTolerance
}

func (e CPTEntry) sameParents(parents Assignment) bool {
	if len(e.ParentValues) != len(parents) {
		return false
	}
	for k, v := range e.ParentValues {
		if got, ok := parents[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// String returns a compact rendering of the entry
func (e CPTEntry) String() string {
	return fmt.Sprintf("CPTEntry(%s -> %v)", e.ParentValues, e.Probabilities)
}
