package codec

import (
	"fmt"

	"bayesnet/internal/domain"
)

// Document is the serialized form of a network, shared by every format.
//
// Domain and parent values are kept as decoded scalars (bool, number or
// string). Probability keys are always strings and are mapped back onto the
// node's domain when the network is built.
type Document struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []NodeDoc `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Edges       []EdgeDoc `json:"edges" yaml:"edges" validate:"dive"`
}

// NodeDoc is one variable of a Document
type NodeDoc struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Domain      []any    `json:"domain" yaml:"domain" validate:"required,min=1"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	CPT         []CPTDoc `json:"cpt" yaml:"cpt" validate:"dive"`
}

// CPTDoc is one CPT row of a NodeDoc
type CPTDoc struct {
	ParentValues  map[string]any     `json:"parent_values" yaml:"parent_values"`
	Probabilities map[string]float64 `json:"probabilities" yaml:"probabilities" validate:"required,min=1,probsum,dive,gte=0,lte=1"`
}

// EdgeDoc is a parent -> child edge of a Document
type EdgeDoc struct {
	Parent string `json:"parent" yaml:"parent" validate:"required,nefield=Child"`
	Child  string `json:"child" yaml:"child" validate:"required"`
}

// Network builds a network from the document. Nodes are added first, then
// edges, then CPT rows so that parent values can be matched against the
// parents' domains.
func (d *Document) Network() (*domain.Network, error) {
	net := domain.NewNetwork(d.Name)
	net.Description = d.Description

	for i, nd := range d.Nodes {
		values, err := toValues(nd.Domain)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, nd.Name, err)
		}
		node := domain.NewNode(nd.Name, values)
		node.Description = nd.Description
		if err := net.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, e := range d.Edges {
		if err := net.AddEdge(e.Parent, e.Child); err != nil {
			return nil, err
		}
	}

	for _, nd := range d.Nodes {
		node, _ := net.Node(nd.Name)
		for j, row := range nd.CPT {
			parents, err := parentAssignment(net, row.ParentValues)
			if err != nil {
				return nil, fmt.Errorf("node %s, cpt entry %d: %w", nd.Name, j, err)
			}
			probs := make(map[domain.Value]float64, len(row.Probabilities))
			for key, p := range row.Probabilities {
				probs[domain.CoerceToDomain(key, node.Domain)] = p
			}
			node.SetCPTEntry(parents, probs)
		}
	}

	return net, nil
}

// FromNetwork converts a network to its document form. Values are stored
// as domain.Value so each codec can choose its own scalar encoding.
func FromNetwork(net *domain.Network) *Document {
	doc := &Document{
		Name:        net.Name,
		Description: net.Description,
		Nodes:       make([]NodeDoc, 0, net.Len()),
		Edges:       make([]EdgeDoc, 0, net.EdgeCount()),
	}

	for _, node := range net.Nodes() {
		nd := NodeDoc{
			Name:        node.Name,
			Description: node.Description,
			Domain:      make([]any, 0, len(node.Domain)),
			CPT:         make([]CPTDoc, 0, len(node.CPT)),
		}
		for _, v := range node.Domain {
			nd.Domain = append(nd.Domain, v)
		}
		for _, entry := range node.CPT {
			row := CPTDoc{
				ParentValues:  make(map[string]any, len(entry.ParentValues)),
				Probabilities: make(map[string]float64, len(entry.Probabilities)),
			}
			for k, v := range entry.ParentValues {
				row.ParentValues[k] = v
			}
			for k, p := range entry.Probabilities {
				row.Probabilities[k.String()] = p
			}
			nd.CPT = append(nd.CPT, row)
		}
		doc.Nodes = append(doc.Nodes, nd)

		for _, parent := range node.Parents {
			doc.Edges = append(doc.Edges, EdgeDoc{Parent: parent, Child: node.Name})
		}
	}

	return doc
}

func toValues(raw []any) ([]domain.Value, error) {
	out := make([]domain.Value, 0, len(raw))
	for _, r := range raw {
		v, err := domain.FromJSON(r)
		if err != nil {
			return nil, fmt.Errorf("invalid domain value %v: %w", r, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parentAssignment converts decoded parent values, mapping strings onto
// the parent's domain when they spell one of its values
func parentAssignment(net *domain.Network, raw map[string]any) (domain.Assignment, error) {
	out := make(domain.Assignment, len(raw))
	for name, r := range raw {
		v, err := domain.FromJSON(r)
		if err != nil {
			return nil, fmt.Errorf("parent %s: %w", name, err)
		}
		if parent, ok := net.Node(name); ok && !parent.HasValue(v) {
			v = domain.CoerceToDomain(v.String(), parent.Domain)
		}
		out[name] = v
	}
	return out, nil
}
