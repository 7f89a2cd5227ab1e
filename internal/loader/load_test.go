package loader

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
)

func TestLoadFile(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		net, err := New().LoadFile("testdata/sprinkler.json")
		require.NoError(t, err)

		assert.Equal(t, "Sprinkler", net.Name)
		assert.Equal(t, 4, net.Len())
		assert.Equal(t, 4, net.EdgeCount())

		wet, ok := net.Node("WetGrass")
		require.True(t, ok)
		if diff := cmp.Diff([]string{"Sprinkler", "Rain"}, wet.Parents); diff != "" {
			t.Errorf("parents mismatch (-want +got):\n%s", diff)
		}
		p := wet.Probability(domain.Bool(true), domain.Assignment{"Sprinkler": domain.Bool(true), "Rain": domain.Bool(false)})
		assert.Equal(t, 0.9, p)
	})

	t.Run("yaml with text and int domains", func(t *testing.T) {
		net, err := New(WithRequireCompleteCPTs(true)).LoadFile("testdata/traffic.yaml")
		require.NoError(t, err)

		delay, ok := net.Node("Delay")
		require.True(t, ok)
		assert.Equal(t, []domain.Value{domain.Int(0), domain.Int(15), domain.Int(60)}, delay.Domain)
		p := delay.Probability(domain.Int(60), domain.Assignment{"Weather": domain.Text("snowy")})
		assert.Equal(t, 0.6, p)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New().LoadFile(filepath.Join(t.TempDir(), "none.json"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := New().LoadFile("network.txt")
		assert.Error(t, err)
	})
}

func TestBuildRejectsInvalidDocuments(t *testing.T) {
	boolDomain := []any{true, false}
	root := func(name string) codec.NodeDoc {
		return codec.NodeDoc{
			Name:   name,
			Domain: boolDomain,
			CPT: []codec.CPTDoc{{
				ParentValues:  map[string]any{},
				Probabilities: map[string]float64{"true": 0.5, "false": 0.5},
			}},
		}
	}

	tests := []struct {
		name    string
		doc     codec.Document
		message string
	}{
		{
			name:    "missing name",
			doc:     codec.Document{Nodes: []codec.NodeDoc{root("A")}},
			message: "Name",
		},
		{
			name:    "no nodes",
			doc:     codec.Document{Name: "empty"},
			message: "Nodes",
		},
		{
			name:    "duplicate node",
			doc:     codec.Document{Name: "dup", Nodes: []codec.NodeDoc{root("A"), root("A")}},
			message: "duplicate node name",
		},
		{
			name: "empty domain",
			doc: codec.Document{Name: "d", Nodes: []codec.NodeDoc{{
				Name: "A",
			}}},
			message: "Domain",
		},
		{
			name: "probabilities do not sum to one",
			doc: codec.Document{Name: "p", Nodes: []codec.NodeDoc{{
				Name:   "A",
				Domain: boolDomain,
				CPT: []codec.CPTDoc{{
					Probabilities: map[string]float64{"true": 0.25, "false": 0.5},
				}},
			}}},
			message: "sum to 0.75",
		},
		{
			name: "unknown edge endpoint",
			doc: codec.Document{
				Name:  "e",
				Nodes: []codec.NodeDoc{root("A")},
				Edges: []codec.EdgeDoc{{Parent: "A", Child: "B"}},
			},
			message: `child node "B" does not exist`,
		},
		{
			name: "self loop",
			doc: codec.Document{
				Name:  "s",
				Nodes: []codec.NodeDoc{root("A")},
				Edges: []codec.EdgeDoc{{Parent: "A", Child: "A"}},
			},
			message: "nefield",
		},
		{
			name: "cycle",
			doc: codec.Document{
				Name:  "c",
				Nodes: []codec.NodeDoc{root("A"), root("B")},
				Edges: []codec.EdgeDoc{{Parent: "A", Child: "B"}, {Parent: "B", Child: "A"}},
			},
			message: "cycle",
		},
		{
			name: "reserved node name",
			doc: codec.Document{
				Name:  "r",
				Nodes: []codec.NodeDoc{root("__dummy__"), root("X")},
				Edges: []codec.EdgeDoc{{Parent: "__dummy__", Child: "X"}},
			},
			message: `name "__dummy__" is reserved`,
		},
		{
			name: "probability key outside domain",
			doc: codec.Document{Name: "k", Nodes: []codec.NodeDoc{{
				Name:   "A",
				Domain: boolDomain,
				CPT: []codec.CPTDoc{{
					ParentValues:  map[string]any{},
					Probabilities: map[string]float64{"ture": 0.9, "false": 0.1},
				}},
			}}},
			message: `probability key "ture" is not in the domain`,
		},
		{
			name: "root without cpt",
			doc: codec.Document{Name: "r", Nodes: []codec.NodeDoc{{
				Name:   "A",
				Domain: boolDomain,
			}}},
			message: "invalid CPT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Build(&tt.doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument), "expected ErrInvalidDocument, got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestBuildCoercesProbabilityKeys(t *testing.T) {
	doc := &codec.Document{Name: "coerce", Nodes: []codec.NodeDoc{{
		Name:   "Level",
		Domain: []any{json.Number("1"), json.Number("2")},
		CPT: []codec.CPTDoc{{
			ParentValues:  map[string]any{},
			Probabilities: map[string]float64{"1.0": 0.25, "2": 0.75},
		}},
	}}}

	net, err := New(WithRequireCompleteCPTs(true)).Build(doc)
	require.NoError(t, err)

	node, ok := net.Node("Level")
	require.True(t, ok)
	assert.InDelta(t, 0.25, node.Probability(domain.Int(1), nil), 1e-12)
	assert.InDelta(t, 0.75, node.Probability(domain.Int(2), nil), 1e-12)
}

func TestBuildCPTCompleteness(t *testing.T) {
	doc := &codec.Document{
		Name: "partial",
		Nodes: []codec.NodeDoc{
			{Name: "A", Domain: []any{true, false}, CPT: []codec.CPTDoc{{
				Probabilities: map[string]float64{"true": 0.5, "false": 0.5},
			}}},
			{Name: "B", Domain: []any{true, false}, CPT: []codec.CPTDoc{{
				ParentValues:  map[string]any{"A": true},
				Probabilities: map[string]float64{"true": 0.9, "false": 0.1},
			}}},
		},
		Edges: []codec.EdgeDoc{{Parent: "A", Child: "B"}},
	}

	t.Run("lenient by default", func(t *testing.T) {
		net, err := New().Build(doc)
		require.NoError(t, err)
		b, _ := net.Node("B")
		assert.Equal(t, 0.0, b.Probability(domain.Bool(true), domain.Assignment{"A": domain.Bool(false)}))
	})

	t.Run("strict when required", func(t *testing.T) {
		_, err := New(WithRequireCompleteCPTs(true)).Build(doc)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrIncompleteCPT))
		assert.True(t, errors.Is(err, ErrInvalidDocument))
	})
}

func TestLoadReportsEveryProblem(t *testing.T) {
	input := `{
		"name": "broken",
		"nodes": [
			{"name": "A", "domain": [true, false], "cpt": [{"parent_values": {}, "probabilities": {"true": 0.2, "false": 0.2}}]},
			{"name": "A", "domain": [], "cpt": []}
		],
		"edges": [{"parent": "X", "child": "A"}]
	}`

	_, err := New().Load(strings.NewReader(input), codec.NewJSONCodec())
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "sum to 0.4")
	assert.Contains(t, msg, "duplicate node name")
	assert.Contains(t, msg, `parent node "X" does not exist`)
}

func TestLoadMalformedInput(t *testing.T) {
	_, err := New().Load(strings.NewReader("{not json"), codec.NewJSONCodec())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestExampleRoundTrip(t *testing.T) {
	for _, name := range Examples() {
		for _, format := range codec.Formats() {
			t.Run(name+"/"+format, func(t *testing.T) {
				net, err := Example(name)
				require.NoError(t, err)
				require.True(t, net.IsValid())

				c, err := codec.ForFormat(format)
				require.NoError(t, err)

				path := filepath.Join(t.TempDir(), name+"."+format)
				file, err := os.Create(path)
				require.NoError(t, err)
				require.NoError(t, c.Export(codec.FromNetwork(net), file))
				require.NoError(t, file.Close())

				loaded, err := New(WithRequireCompleteCPTs(true)).LoadFile(path)
				require.NoError(t, err)
				assert.Equal(t, net.Variables(), loaded.Variables())

				for _, node := range net.Nodes() {
					got, _ := loaded.Node(node.Name)
					assert.Equal(t, node.Parents, got.Parents)
					for _, entry := range node.CPT {
						for v, p := range entry.Probabilities {
							assert.InDelta(t, p, got.Probability(v, entry.ParentValues), 1e-12)
						}
					}
				}
			})
		}
	}

	_, err := Example("nope")
	assert.Error(t, err)
}
