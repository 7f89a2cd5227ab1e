package inference

import (
	"math"

	"bayesnet/internal/domain"
)

// Distribution maps each value of the query variable to its probability
type Distribution map[domain.Value]float64

// Total returns the probability mass of the distribution
func (d Distribution) Total() float64 {
	var total float64
	for _, p := range d {
		total += p
	}
	return total
}

// Outcomes lists the distribution in the order of values
func (d Distribution) Outcomes(values []domain.Value) []domain.Outcome {
	out := make([]domain.Outcome, 0, len(values))
	for _, v := range values {
		out = append(out, domain.Outcome{Value: v, Probability: d[v]})
	}
	return out
}

// Uniform returns equal probability for every value
func Uniform(values []domain.Value) Distribution {
	d := make(Distribution, len(values))
	if len(values) == 0 {
		return d
	}
	p := 1.0 / float64(len(values))
	for _, v := range values {
		d[v] = p
	}
	return d
}

// normalize scales d to sum to 1 in place. Zero mass, as produced by
// evidence the model gives no support to, falls back to uniform over values.
func normalize(d Distribution, values []domain.Value) Distribution {
	total := d.Total()
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Uniform(values)
	}
	for v := range d {
		d[v] /= total
	}
	return d
}

// Compare reports whether a and b agree on every value within tolerance,
// along with the largest absolute difference seen
func Compare(a, b Distribution, tolerance float64) (bool, float64) {
	var maxDiff float64
	for v, p := range a {
		maxDiff = math.Max(maxDiff, math.Abs(p-b[v]))
	}
	for v, p := range b {
		if _, ok := a[v]; !ok {
			maxDiff = math.Max(maxDiff, math.Abs(p))
		}
	}
	return maxDiff <= tolerance, maxDiff
}
