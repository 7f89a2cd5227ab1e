package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"bayesnet/internal/domain"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a network document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &doc, nil
}

// Export exports a network document to YAML
func (c *YAMLCodec) Export(doc *Document, w io.Writer) error {
	out := *doc
	out.Nodes = make([]NodeDoc, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		nd.Domain = yamlScalars(nd.Domain)
		cpt := make([]CPTDoc, len(nd.CPT))
		for j, row := range nd.CPT {
			parents := make(map[string]any, len(row.ParentValues))
			for k, v := range row.ParentValues {
				parents[k] = yamlScalar(v)
			}
			cpt[j] = CPTDoc{ParentValues: parents, Probabilities: row.Probabilities}
		}
		nd.CPT = cpt
		out.Nodes[i] = nd
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

func yamlScalars(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = yamlScalar(v)
	}
	return out
}

// yamlScalar converts a domain.Value into something yaml.v3 encodes as a
// plain scalar. Floats always keep a decimal point so 1.0 does not read
// back as an integer.
func yamlScalar(x any) any {
	v, ok := x.(domain.Value)
	if !ok {
		return x
	}
	if v.Kind() == domain.KindFloat {
		text, _ := v.MarshalJSON()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: string(text)}
	}
	return v.Any()
}
