package openapi

import (
	"encoding/json"
	"fmt"

	"github.com/vitalvas/refdoc/config"
	"gopkg.in/yaml.v3"
)

// Encode serializes doc as indented JSON or as YAML. The YAML form is built
// from the JSON form so both use the same key names.
func Encode(doc *Document, format string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document as JSON: %w", err)
	}

	switch format {
	case config.FormatJSON:
		return append(data, '\n'), nil
	case config.FormatYAML:
		return jsonToYAML(data)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// jsonToYAML re-encodes JSON as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to decode JSON document: %w", err)
	}
	clearStyle(&node)

	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document as YAML: %w", err)
	}
	return out, nil
}

// clearStyle drops the flow and quoting styles inherited from JSON. The
// encoder still quotes strings that would otherwise change type.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		clearStyle(child)
	}
}
