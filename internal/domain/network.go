package domain

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Network is a directed acyclic graph of discrete random variables.
//
// Nodes are owned by the network and indexed by name; adjacency is kept
// as name lists on each node. Once built, a Network may be shared read-only
// by concurrent queries. AddNode and AddEdge must not race with readers.
type Network struct {
	Name        string
	Description string

	nodes map[string]*Node
	order []string // insertion order

	mu    sync.Mutex
	topo  []string
	valid bool // topo is current
}

// NewNetwork creates an empty network
func NewNetwork(name string) *Network {
	return &Network{
		Name:  name,
		nodes: make(map[string]*Node),
	}
}

// AddNode adds a node, failing if the name is already taken
func (n *Network) AddNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("add node: nil node")
	}
	if node.Name == ReservedName {
		return structuralErr("add node", node.Name, ErrReservedName)
	}
	if _, exists := n.nodes[node.Name]; exists {
		return structuralErr("add node", node.Name, ErrDuplicateNode)
	}
	n.nodes[node.Name] = node
	n.order = append(n.order, node.Name)
	n.invalidate()
	return nil
}

// AddEdge adds a parent -> child edge. The edge is refused if either node
// is unknown or if child already reaches parent.
func (n *Network) AddEdge(parent, child string) error {
	p, ok := n.nodes[parent]
	if !ok {
		return structuralErr("add edge", parent, ErrUnknownNode)
	}
	c, ok := n.nodes[child]
	if !ok {
		return structuralErr("add edge", child, ErrUnknownNode)
	}
	if n.hasPath(child, parent) {
		return structuralErr("add edge", parent+" -> "+child, ErrCycle)
	}

	p.AddChild(child)
	c.AddParent(parent)
	n.invalidate()
	return nil
}

// Node returns the node with the given name
func (n *Network) Node(name string) (*Node, bool) {
	node, ok := n.nodes[name]
	return node, ok
}

// RequireNode returns the named node or a structural error
func (n *Network) RequireNode(name string) (*Node, error) {
	node, ok := n.nodes[name]
	if !ok {
		return nil, structuralErr("lookup", name, ErrUnknownNode)
	}
	return node, nil
}

// Has reports whether a node with the given name exists
func (n *Network) Has(name string) bool {
	_, ok := n.nodes[name]
	return ok
}

// Len returns the number of nodes
func (n *Network) Len() int {
	return len(n.order)
}

// Variables returns node names in insertion order
func (n *Network) Variables() []string {
	return slices.Clone(n.order)
}

// Nodes returns the nodes in insertion order
func (n *Network) Nodes() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.nodes[name])
	}
	return out
}

// Parents returns a copy of the node's parent names
func (n *Network) Parents(name string) ([]string, error) {
	node, err := n.RequireNode(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(node.Parents), nil
}

// Children returns a copy of the node's child names
func (n *Network) Children(name string) ([]string, error) {
	node, err := n.RequireNode(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(node.Children), nil
}

// EdgeCount returns the number of parent -> child edges
func (n *Network) EdgeCount() int {
	count := 0
	for _, node := range n.nodes {
		count += len(node.Parents)
	}
	return count
}

// TopologicalOrder returns node names with every parent before its children.
//
// Uses Kahn's algorithm with a FIFO queue seeded in insertion order. The
// result is cached until the next AddNode or AddEdge.
func (n *Network) TopologicalOrder() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.valid {
		return slices.Clone(n.topo), nil
	}

	inDegree := make(map[string]int, len(n.nodes))
	for _, name := range n.order {
		inDegree[name] = len(n.nodes[name].Parents)
	}

	queue := make([]string, 0, len(n.order))
	for _, name := range n.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(n.order))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, child := range n.nodes[current].Children {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(result) != len(n.order) {
		var stuck []string
		for _, name := range n.order {
			if inDegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, structuralErr("topological order", strings.Join(stuck, ", "), ErrCycle)
	}

	n.topo = result
	n.valid = true
	return slices.Clone(result), nil
}

// MarkovBlanket returns the parents, children and co-parents of a node,
// excluding the node itself, sorted by name
func (n *Network) MarkovBlanket(name string) ([]string, error) {
	node, err := n.RequireNode(name)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, p := range node.Parents {
		set[p] = struct{}{}
	}
	for _, c := range node.Children {
		set[c] = struct{}{}
		for _, coParent := range n.nodes[c].Parents {
			set[coParent] = struct{}{}
		}
	}
	delete(set, name)

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// IsValid reports whether the network is acyclic and every node's CPT is
// normalized. It never returns an error; use Validate for details.
func (n *Network) IsValid() bool {
	return n.Validate() == nil
}

// Validate checks acyclicity and CPT normalization
func (n *Network) Validate() error {
	if _, err := n.TopologicalOrder(); err != nil {
		return err
	}
	var errs []error
	for _, node := range n.Nodes() {
		if !node.IsCPTValid() {
			errs = append(errs, fmt.Errorf("node %q: invalid CPT", node.Name))
		}
	}
	return errors.Join(errs...)
}

// CheckCPTCompleteness verifies that every node has a CPT entry for each
// combination of its parents' values
func (n *Network) CheckCPTCompleteness() error {
	var errs []error
	for _, node := range n.Nodes() {
		domains := make([][]Value, len(node.Parents))
		for i, parent := range node.Parents {
			domains[i] = n.nodes[parent].Domain
		}

		var missing []string
		for _, combo := range CartesianProduct(node.Parents, domains) {
			if !node.hasEntryFor(combo) {
				missing = append(missing, combo.String())
			}
		}
		if len(missing) > 0 {
			errs = append(errs, structuralErr("check cpt", node.Name,
				fmt.Errorf("%w: missing %s", ErrIncompleteCPT, strings.Join(missing, "; "))))
		}
	}
	return errors.Join(errs...)
}

// hasPath reports whether end is reachable from start following child edges
func (n *Network) hasPath(start, end string) bool {
	if start == end {
		return true
	}
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == end {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, n.nodes[current].Children...)
	}
	return false
}

func (n *Network) invalidate() {
	n.mu.Lock()
	n.valid = false
	n.topo = nil
	n.mu.Unlock()
}

// String returns a short summary of the network
func (n *Network) String() string {
	return fmt.Sprintf("Network(%q, %d nodes)", n.Name, len(n.order))
}
