package factor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"bayesnet/internal/domain"
)

// Dummy is the variable of a zero-arity factor. Its domain is {true}.
const Dummy = domain.ReservedName

var dummyDomain = []domain.Value{domain.Bool(true)}

// ErrNoFactors is returned when a product is requested over an empty list
var ErrNoFactors = errors.New("no factors to combine")

// Factor is a dense table from joint assignments of its variables to
// non-negative reals.
//
// Cells are stored row-major over the Cartesian product of the variable
// domains in declared order, the last variable varying fastest. Factors are
// immutable once built; every operation returns a new factor.
type Factor struct {
	vars    []string
	domains map[string][]domain.Value
	strides []int
	values  []float64
}

// New creates a zero-filled factor over vars. Every variable must have a
// non-empty domain.
func New(vars []string, domains map[string][]domain.Value) (*Factor, error) {
	if len(vars) == 0 {
		return Scalar(0), nil
	}
	f := &Factor{
		vars:    slices.Clone(vars),
		domains: make(map[string][]domain.Value, len(vars)),
		strides: make([]int, len(vars)),
	}
	size := 1
	for i := len(vars) - 1; i >= 0; i-- {
		name := vars[i]
		if _, dup := f.domains[name]; dup {
			return nil, fmt.Errorf("variable %q listed twice", name)
		}
		d, ok := domains[name]
		if !ok || len(d) == 0 {
			return nil, fmt.Errorf("variable %q has no domain", name)
		}
		f.domains[name] = d
		f.strides[i] = size
		size *= len(d)
	}
	f.values = make([]float64, size)
	return f, nil
}

// Scalar returns a zero-arity factor holding v
func Scalar(v float64) *Factor {
	return &Factor{
		vars:    []string{Dummy},
		domains: map[string][]domain.Value{Dummy: dummyDomain},
		strides: []int{0},
		values:  []float64{v},
	}
}

// FromCPT builds the factor P(node | parents) over the node's parents
// followed by the node. Each cell takes its probability from the first CPT
// entry matching the cell's parent values; cells with no entry stay 0.
func FromCPT(net *domain.Network, node *domain.Node) (*Factor, error) {
	vars := make([]string, 0, len(node.Parents)+1)
	domains := make(map[string][]domain.Value, len(node.Parents)+1)
	for _, parent := range node.Parents {
		p, err := net.RequireNode(parent)
		if err != nil {
			return nil, err
		}
		vars = append(vars, parent)
		domains[parent] = p.Domain
	}
	vars = append(vars, node.Name)
	domains[node.Name] = node.Domain

	f, err := New(vars, domains)
	if err != nil {
		return nil, fmt.Errorf("failed to build factor for %q: %w", node.Name, err)
	}

	f.each(func(idx int, cell domain.Assignment) {
		f.values[idx] = node.Probability(cell[node.Name], cell)
	})
	return f, nil
}

// Variables returns the factor's variables in declared order
func (f *Factor) Variables() []string {
	return slices.Clone(f.vars)
}

// Domain returns the domain of a variable of the factor
func (f *Factor) Domain(name string) ([]domain.Value, bool) {
	d, ok := f.domains[name]
	return d, ok
}

// Contains reports whether name is one of the factor's variables
func (f *Factor) Contains(name string) bool {
	_, ok := f.domains[name]
	return ok
}

// IsScalar reports whether the factor has no real variables
func (f *Factor) IsScalar() bool {
	return len(f.vars) == 1 && f.vars[0] == Dummy
}

// Size returns the number of cells
func (f *Factor) Size() int {
	return len(f.values)
}

// Value returns the single cell of a scalar factor
func (f *Factor) Value() float64 {
	if len(f.values) == 0 {
		return 0
	}
	return f.values[0]
}

// Get reads the cell selected by assignment. Variables of the assignment
// that the factor does not mention are ignored. A missing factor variable
// or a value outside its domain reads as 0.
func (f *Factor) Get(assignment domain.Assignment) float64 {
	idx, ok := f.index(assignment)
	if !ok {
		return 0
	}
	return f.values[idx]
}

// Set writes the cell selected by assignment
func (f *Factor) Set(assignment domain.Assignment, v float64) error {
	idx, ok := f.index(assignment)
	if !ok {
		return fmt.Errorf("assignment %s does not select a cell of %s", assignment, f)
	}
	f.values[idx] = v
	return nil
}

// Each calls fn for every cell in declared order. The assignment passed
// to fn is freshly allocated and may be retained.
func (f *Factor) Each(fn func(domain.Assignment, float64)) {
	f.each(func(idx int, cell domain.Assignment) {
		fn(cell, f.values[idx])
	})
}

// Total returns the sum of all cells
func (f *Factor) Total() float64 {
	var total float64
	for _, v := range f.values {
		total += v
	}
	return total
}

// Restrict fixes every factor variable present in evidence and drops it.
// When no variable remains the result is a scalar holding the selected
// cell, which is 0 if the evidence is outside the factor's domains.
func (f *Factor) Restrict(evidence domain.Assignment) *Factor {
	var kept []string
	for _, name := range f.realVars() {
		if !evidence.Has(name) {
			kept = append(kept, name)
		}
	}
	if len(kept) == len(f.realVars()) {
		return f.clone()
	}
	if len(kept) == 0 {
		return Scalar(f.Get(evidence))
	}

	out := f.subFactor(kept)
	out.each(func(idx int, cell domain.Assignment) {
		for k, v := range evidence {
			cell[k] = v
		}
		out.values[idx] = f.Get(cell)
	})
	return out
}

// Product returns the pointwise product of f and other over the union of
// their variables, f's variables first. A scalar operand scales the other
// factor and never adds the dummy variable to a result that has real
// variables.
func (f *Factor) Product(other *Factor) *Factor {
	vars := f.realVars()
	for _, name := range other.realVars() {
		if !slices.Contains(vars, name) {
			vars = append(vars, name)
		}
	}
	if len(vars) == 0 {
		return Scalar(f.Value() * other.Value())
	}

	domains := make(map[string][]domain.Value, len(vars))
	for _, name := range vars {
		if d, ok := f.domains[name]; ok {
			domains[name] = d
		} else {
			domains[name] = other.domains[name]
		}
	}
	out, _ := New(vars, domains)

	left := out.projection(f)
	right := out.projection(other)
	counter := make([]int, len(vars))
	for idx := range out.values {
		li, ri := 0, 0
		for j, c := range counter {
			li += c * left[j]
			ri += c * right[j]
		}
		out.values[idx] = f.values[li] * other.values[ri]
		out.advance(counter)
	}
	return out
}

// SumOut marginalizes name out of the factor. Summing out the last real
// variable yields a scalar holding the total. A variable the factor does
// not mention leaves it unchanged.
func (f *Factor) SumOut(name string) *Factor {
	if name == Dummy || !f.Contains(name) {
		return f.clone()
	}

	var kept []string
	for _, v := range f.vars {
		if v != name {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return Scalar(f.Total())
	}

	out := f.subFactor(kept)
	proj := out.projection(f)
	pos := slices.Index(f.vars, name)
	stride := f.strides[pos]
	n := len(f.domains[name])

	counter := make([]int, len(kept))
	for idx := range out.values {
		base := 0
		for j, c := range counter {
			base += c * proj[j]
		}
		var sum float64
		for k := 0; k < n; k++ {
			sum += f.values[base+k*stride]
		}
		out.values[idx] = sum
		out.advance(counter)
	}
	return out
}

// Normalize scales the cells to sum to 1. A factor with zero total mass is
// returned unchanged; callers decide how to fall back.
func (f *Factor) Normalize() *Factor {
	out := f.clone()
	total := f.Total()
	if total == 0 {
		return out
	}
	for i := range out.values {
		out.values[i] /= total
	}
	return out
}

// String renders the factor's variables and size
func (f *Factor) String() string {
	return fmt.Sprintf("Factor(%s; %d cells)", strings.Join(f.vars, ", "), len(f.values))
}

// realVars returns the variables other than the dummy
func (f *Factor) realVars() []string {
	if f.IsScalar() {
		return nil
	}
	return slices.Clone(f.vars)
}

func (f *Factor) clone() *Factor {
	return &Factor{
		vars:    slices.Clone(f.vars),
		domains: f.domains,
		strides: slices.Clone(f.strides),
		values:  slices.Clone(f.values),
	}
}

// subFactor returns an empty factor over a subset of f's variables
func (f *Factor) subFactor(vars []string) *Factor {
	out, _ := New(vars, f.domains)
	return out
}

// projection maps each variable of f to its stride in src, 0 when src
// does not mention it
func (f *Factor) projection(src *Factor) []int {
	out := make([]int, len(f.vars))
	for i, name := range f.vars {
		if j := slices.Index(src.vars, name); j >= 0 {
			out[i] = src.strides[j]
		}
	}
	return out
}

// advance moves a mixed-radix counter to the next cell
func (f *Factor) advance(counter []int) {
	for i := len(counter) - 1; i >= 0; i-- {
		counter[i]++
		if counter[i] < len(f.domains[f.vars[i]]) {
			return
		}
		counter[i] = 0
	}
}

func (f *Factor) index(assignment domain.Assignment) (int, bool) {
	idx := 0
	for i, name := range f.vars {
		if name == Dummy {
			continue
		}
		v, ok := assignment[name]
		if !ok {
			return 0, false
		}
		pos := domain.IndexOf(f.domains[name], v)
		if pos < 0 {
			return 0, false
		}
		idx += pos * f.strides[i]
	}
	return idx, true
}

func (f *Factor) each(fn func(idx int, cell domain.Assignment)) {
	counter := make([]int, len(f.vars))
	for idx := range f.values {
		cell := make(domain.Assignment, len(f.vars))
		for i, name := range f.vars {
			if name == Dummy {
				continue
			}
			cell[name] = f.domains[name][counter[i]]
		}
		fn(idx, cell)
		f.advance(counter)
	}
}
