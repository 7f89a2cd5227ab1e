package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bayesnet/internal/domain"
)

func mixedNetwork(t *testing.T) *domain.Network {
	t.Helper()
	net := domain.NewNetwork("mixed")
	net.Description = "values of every kind"

	rate := domain.NewNode("Rate", []domain.Value{domain.Float(1), domain.Float(2.5)})
	rate.SetCPTEntry(nil, map[domain.Value]float64{domain.Float(1): 0.4, domain.Float(2.5): 0.6})

	level := domain.NewNode("Level", []domain.Value{domain.Int(1), domain.Text("high")})
	level.SetCPTEntry(domain.Assignment{"Rate": domain.Float(1)}, map[domain.Value]float64{domain.Int(1): 0.9, domain.Text("high"): 0.1})
	level.SetCPTEntry(domain.Assignment{"Rate": domain.Float(2.5)}, map[domain.Value]float64{domain.Int(1): 0.2, domain.Text("high"): 0.8})

	require.NoError(t, net.AddNode(rate))
	require.NoError(t, net.AddNode(level))
	require.NoError(t, net.AddEdge("Rate", "Level"))
	return net
}

func TestRoundTripPreservesValueKinds(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format)
			require.NoError(t, err)
			assert.Equal(t, format, c.Format())

			var buf bytes.Buffer
			require.NoError(t, c.Export(FromNetwork(mixedNetwork(t)), &buf))

			doc, err := c.Parse(&buf)
			require.NoError(t, err)
			net, err := doc.Network()
			require.NoError(t, err)

			assert.Equal(t, "values of every kind", net.Description)
			rate, _ := net.Node("Rate")
			assert.Equal(t, []domain.Value{domain.Float(1), domain.Float(2.5)}, rate.Domain)

			level, _ := net.Node("Level")
			assert.Equal(t, []domain.Value{domain.Int(1), domain.Text("high")}, level.Domain)
			assert.Equal(t, []string{"Rate"}, level.Parents)
			assert.Equal(t, 0.8, level.Probability(domain.Text("high"), domain.Assignment{"Rate": domain.Float(2.5)}))
		})
	}
}

func TestJSONParseCoercesKeys(t *testing.T) {
	input := `{
		"name": "n",
		"nodes": [
			{"name": "A", "domain": [true, false], "cpt": [{"parent_values": {}, "probabilities": {"True": 0.3, "false": 0.7}}]},
			{"name": "B", "domain": ["1", "2"], "cpt": [
				{"parent_values": {"A": "true"}, "probabilities": {"1": 0.5, "2": 0.5}},
				{"parent_values": {"A": false}, "probabilities": {"1": 0.1, "2": 0.9}}
			]}
		],
		"edges": [{"parent": "A", "child": "B"}]
	}`

	doc, err := NewJSONCodec().Parse(strings.NewReader(input))
	require.NoError(t, err)
	net, err := doc.Network()
	require.NoError(t, err)

	a, _ := net.Node("A")
	assert.Equal(t, 0.3, a.Probability(domain.Bool(true), nil))

	b, _ := net.Node("B")
	assert.Equal(t, 0.5, b.Probability(domain.Text("1"), domain.Assignment{"A": domain.Bool(true)}))
	assert.Equal(t, 0.9, b.Probability(domain.Text("2"), domain.Assignment{"A": domain.Bool(false)}))
}

func TestYAMLExportKeepsFloatPoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLCodec().Export(FromNetwork(mixedNetwork(t)), &buf))
	assert.Contains(t, buf.String(), "- 1.0\n")
	assert.Contains(t, buf.String(), "Rate: 1.0\n")
}

func TestForPath(t *testing.T) {
	tests := map[string]string{
		"net.json":    "json",
		"net.yaml":    "yaml",
		"dir/net.YML": "yaml",
		"net.JSON":    "json",
	}
	for path, want := range tests {
		c, err := ForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, c.Format(), path)
	}

	_, err := ForPath("net")
	assert.Error(t, err)
	_, err = ForPath("net.xml")
	assert.Error(t, err)

	assert.Equal(t, "yaml", ForContentType("application/x-yaml").Format())
	assert.Equal(t, "json", ForContentType("application/json").Format())
}
