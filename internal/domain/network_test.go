package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var boolDomain = []Value{Bool(true), Bool(false)}

// newTestNetwork builds a small network with the given edges and uniform CPTs
func newTestNetwork(t *testing.T, names []string, edges [][2]string) *Network {
	t.Helper()
	net := NewNetwork("test")
	for _, name := range names {
		if err := net.AddNode(NewNode(name, boolDomain)); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", name, err)
		}
	}
	for _, e := range edges {
		if err := net.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s) failed: %v", e[0], e[1], err)
		}
	}
	for _, node := range net.Nodes() {
		domains := make(map[string][]Value)
		for _, p := range node.Parents {
			domains[p] = boolDomain
		}
		if err := node.GenerateCPTTemplate(domains); err != nil {
			t.Fatalf("GenerateCPTTemplate(%s) failed: %v", node.Name, err)
		}
	}
	return net
}

func TestNetworkAddNode(t *testing.T) {
	net := NewNetwork("n")
	if err := net.AddNode(NewNode("A", boolDomain)); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	err := net.AddNode(NewNode("A", boolDomain))
	if !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}
	if !IsStructural(err) {
		t.Error("expected a structural error")
	}
	if net.Len() != 1 {
		t.Errorf("expected 1 node, got %d", net.Len())
	}
}

func TestNetworkAddNodeReservedName(t *testing.T) {
	net := NewNetwork("n")
	err := net.AddNode(NewNode(ReservedName, boolDomain))
	if !errors.Is(err, ErrReservedName) {
		t.Errorf("expected ErrReservedName, got %v", err)
	}
	if !IsStructural(err) {
		t.Error("expected a structural error")
	}
	if net.Has(ReservedName) {
		t.Error("reserved node must not be added")
	}
}

func TestNetworkAddEdge(t *testing.T) {
	t.Run("updates both sides", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A", "B"}, [][2]string{{"A", "B"}})
		a, _ := net.Node("A")
		b, _ := net.Node("B")
		if diff := cmp.Diff([]string{"B"}, a.Children); diff != "" {
			t.Errorf("children mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"A"}, b.Parents); diff != "" {
			t.Errorf("parents mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A"}, nil)
		for _, pair := range [][2]string{{"A", "Z"}, {"Z", "A"}} {
			err := net.AddEdge(pair[0], pair[1])
			if !errors.Is(err, ErrUnknownNode) {
				t.Errorf("AddEdge(%s, %s): expected ErrUnknownNode, got %v", pair[0], pair[1], err)
			}
		}
	})

	t.Run("cycle rejected before mutation", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}})
		err := net.AddEdge("C", "A")
		if !errors.Is(err, ErrCycle) {
			t.Fatalf("expected ErrCycle, got %v", err)
		}
		c, _ := net.Node("C")
		if len(c.Children) != 0 {
			t.Errorf("expected C to have no children, got %v", c.Children)
		}
		if !net.IsValid() {
			t.Error("expected network to remain valid")
		}
	})

	t.Run("self loop rejected", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A"}, nil)
		if err := net.AddEdge("A", "A"); !errors.Is(err, ErrCycle) {
			t.Errorf("expected ErrCycle, got %v", err)
		}
	})
}

func TestNetworkTopologicalOrder(t *testing.T) {
	t.Run("parents before children with insertion order ties", func(t *testing.T) {
		net := newTestNetwork(t,
			[]string{"JohnCalls", "Burglary", "Alarm", "Earthquake", "MaryCalls"},
			[][2]string{
				{"Burglary", "Alarm"},
				{"Earthquake", "Alarm"},
				{"Alarm", "JohnCalls"},
				{"Alarm", "MaryCalls"},
			})

		got, err := net.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		want := []string{"Burglary", "Earthquake", "Alarm", "JohnCalls", "MaryCalls"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cache invalidated by new node", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A"}, nil)
		if _, err := net.TopologicalOrder(); err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		if err := net.AddNode(NewNode("B", boolDomain)); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
		if err := net.AddEdge("B", "A"); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
		got, _ := net.TopologicalOrder()
		if diff := cmp.Diff([]string{"B", "A"}, got); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cache invalidated by new edge", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A", "B", "C"}, nil)
		got, err := net.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		if diff := cmp.Diff([]string{"A", "B", "C"}, got); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}

		if err := net.AddEdge("C", "A"); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
		got, err = net.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		if diff := cmp.Diff([]string{"B", "C", "A"}, got); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A", "B"}, nil)
		got, _ := net.TopologicalOrder()
		got[0] = "mutated"
		again, _ := net.TopologicalOrder()
		if again[0] != "A" {
			t.Errorf("expected cached order to be unaffected, got %v", again)
		}
	})

	t.Run("cycle introduced outside AddEdge", func(t *testing.T) {
		net := newTestNetwork(t, []string{"A", "B"}, [][2]string{{"A", "B"}})
		a, _ := net.Node("A")
		b, _ := net.Node("B")
		a.AddParent("B")
		b.AddChild("A")
		net.invalidate()

		_, err := net.TopologicalOrder()
		if !errors.Is(err, ErrCycle) {
			t.Errorf("expected ErrCycle, got %v", err)
		}
		if net.IsValid() {
			t.Error("expected IsValid to be false")
		}
	})
}

func TestNetworkMarkovBlanket(t *testing.T) {
	net := newTestNetwork(t,
		[]string{"B", "E", "A", "J", "M", "X"},
		[][2]string{{"B", "A"}, {"E", "A"}, {"A", "J"}, {"A", "M"}, {"X", "J"}})

	tests := []struct {
		node string
		want []string
	}{
		{"B", []string{"A", "E"}},
		{"A", []string{"B", "E", "J", "M", "X"}},
		{"J", []string{"A", "X"}},
		{"M", []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			got, err := net.MarkovBlanket(tt.node)
			if err != nil {
				t.Fatalf("MarkovBlanket failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("blanket mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("unknown node", func(t *testing.T) {
		if _, err := net.MarkovBlanket("nope"); !errors.Is(err, ErrUnknownNode) {
			t.Errorf("expected ErrUnknownNode, got %v", err)
		}
	})
}

func TestNetworkIsValid(t *testing.T) {
	net := newTestNetwork(t, []string{"A", "B"}, [][2]string{{"A", "B"}})
	if !net.IsValid() {
		t.Fatalf("expected valid network, got %v", net.Validate())
	}

	b, _ := net.Node("B")
	b.CPT[0].Probabilities[Bool(true)] = 0.9
	if net.IsValid() {
		t.Error("expected unnormalized CPT to invalidate network")
	}
}

func TestNetworkCheckCPTCompleteness(t *testing.T) {
	net := newTestNetwork(t, []string{"A", "B", "C"}, [][2]string{{"A", "C"}, {"B", "C"}})
	if err := net.CheckCPTCompleteness(); err != nil {
		t.Fatalf("expected complete CPTs, got %v", err)
	}

	c, _ := net.Node("C")
	c.CPT = c.CPT[:3]

	err := net.CheckCPTCompleteness()
	if !errors.Is(err, ErrIncompleteCPT) {
		t.Fatalf("expected ErrIncompleteCPT, got %v", err)
	}
	var se *StructuralError
	if !errors.As(err, &se) || se.Node != "C" {
		t.Errorf("expected structural error for C, got %v", err)
	}
}

func TestNetworkVariables(t *testing.T) {
	net := newTestNetwork(t, []string{"Z", "A", "M"}, [][2]string{{"A", "Z"}})
	if diff := cmp.Diff([]string{"Z", "A", "M"}, net.Variables()); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
	if net.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", net.EdgeCount())
	}
	parents, err := net.Parents("Z")
	if err != nil || len(parents) != 1 || parents[0] != "A" {
		t.Errorf("expected parents [A], got %v (%v)", parents, err)
	}
}
