package domain

import (
	"fmt"
	"slices"
)

// Node is a discrete random variable in a Bayesian network
type Node struct {
	Name        string
	Domain      []Value
	Description string

	// Adjacency by name; the owning Network keeps both sides in sync
	Parents  []string
	Children []string

	CPT []CPTEntry
}

// NewNode creates a new node with the given domain
func NewNode(name string, domain []Value) *Node {
	return &Node{
		Name:   name,
		Domain: slices.Clone(domain),
	}
}

// AddParent records parent as a parent of the node, ignoring duplicates
func (n *Node) AddParent(parent string) {
	if !slices.Contains(n.Parents, parent) {
		n.Parents = append(n.Parents, parent)
	}
}

// AddChild records child as a child of the node, ignoring duplicates
func (n *Node) AddChild(child string) {
	if !slices.Contains(n.Children, child) {
		n.Children = append(n.Children, child)
	}
}

// HasValue reports whether v is in the node's domain
func (n *Node) HasValue(v Value) bool {
	return contains(n.Domain, v)
}

// SetCPTEntry replaces the entry with identical parent values, or appends a new one
func (n *Node) SetCPTEntry(parentValues Assignment, probabilities map[Value]float64) {
	entry := NewCPTEntry(parentValues, probabilities)
	for i := range n.CPT {
		if n.CPT[i].sameParents(parentValues) {
			n.CPT[i] = entry
			return
		}
	}
	n.CPT = append(n.CPT, entry)
}

// Lookup returns the first CPT entry matching the parent assignment
func (n *Node) Lookup(parentValues Assignment) (CPTEntry, bool) {
	for _, entry := range n.CPT {
		if entry.Matches(parentValues) {
			return entry, true
		}
	}
	return CPTEntry{}, false
}

// Probability returns P(value | parentValues) from the first matching entry.
// A missing entry or a value outside the entry's support yields 0.
func (n *Node) Probability(value Value, parentValues Assignment) float64 {
	entry, ok := n.Lookup(parentValues)
	if !ok {
		return 0
	}
	return entry.Probability(value)
}

// Distribution returns the full distribution for the parent assignment,
// uniform over the domain when no entry matches
func (n *Node) Distribution(parentValues Assignment) map[Value]float64 {
	if entry, ok := n.Lookup(parentValues); ok {
		out := make(map[Value]float64, len(entry.Probabilities))
		for k, v := range entry.Probabilities {
			out[k] = v
		}
		return out
	}

	out := make(map[Value]float64, len(n.Domain))
	if len(n.Domain) == 0 {
		return out
	}
	p := 1.0 / float64(len(n.Domain))
	for _, v := range n.Domain {
		out[v] = p
	}
	return out
}

// IsCPTValid checks every entry sums to 1. A root node must have exactly
// one entry; a node with parents must have at least one.
func (n *Node) IsCPTValid() bool {
	if len(n.CPT) == 0 {
		return false
	}
	for _, entry := range n.CPT {
		if !entry.IsValid() {
			return false
		}
	}
	if len(n.Parents) == 0 {
		return len(n.CPT) == 1
	}
	return true
}

// GenerateCPTTemplate replaces the CPT with uniform rows, one for every
// combination of parent values
func (n *Node) GenerateCPTTemplate(parentDomains map[string][]Value) error {
	if len(n.Domain) == 0 {
		return fmt.Errorf("node %q has an empty domain", n.Name)
	}

	domains := make([][]Value, len(n.Parents))
	for i, parent := range n.Parents {
		d, ok := parentDomains[parent]
		if !ok {
			return fmt.Errorf("missing domain for parent %q of %q", parent, n.Name)
		}
		domains[i] = d
	}

	uniform := make(map[Value]float64, len(n.Domain))
	p := 1.0 / float64(len(n.Domain))
	for _, v := range n.Domain {
		uniform[v] = p
	}

	n.CPT = n.CPT[:0]
	for _, combo := range CartesianProduct(n.Parents, domains) {
		n.CPT = append(n.CPT, NewCPTEntry(combo, uniform))
	}
	return nil
}

// hasEntryFor reports whether some entry fixes the parents to exactly combo
func (n *Node) hasEntryFor(combo Assignment) bool {
	for _, entry := range n.CPT {
		if entry.sameParents(combo) {
			return true
		}
	}
	return false
}

// String returns a compact rendering of the node
func (n *Node) String() string {
	return fmt.Sprintf("Node(%q, domain=%v, parents=%v)", n.Name, n.Domain, n.Parents)
}

// CartesianProduct enumerates every assignment of names over domains, in
// declared order with the last name varying fastest. No names yields a
// single empty assignment.
func CartesianProduct(names []string, domains [][]Value) []Assignment {
	out := []Assignment{{}}
	for i, name := range names {
		next := make([]Assignment, 0, len(out)*len(domains[i]))
		for _, partial := range out {
			for _, v := range domains[i] {
				next = append(next, partial.With(name, v))
			}
		}
		out = next
	}
	return out
}
