package yaml

import (
	"bytes"
	"errors"
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
)

// Shape is the expected top-level node of a YAML document.
type Shape int

const (
	ShapeAny Shape = iota
	ShapeSequence
	ShapeMapping
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeMapping:
		return "mapping"
	default:
		return "any"
	}
}

// IsBlank reports whether content holds nothing but whitespace.
func IsBlank(content []byte) bool {
	return len(bytes.TrimSpace(content)) == 0
}

// ValidateShape checks that content is well-formed YAML whose top-level node
// has the expected shape. Blank content and an explicit null are accepted.
func ValidateShape(content []byte, shape Shape) error {
	if IsBlank(content) {
		return nil
	}
	var doc yamlv3.Node
	if err := yamlv3.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if shape == ShapeAny || len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind == yamlv3.ScalarNode && root.ShortTag() == "!!null" {
		return nil
	}
	switch shape {
	case ShapeSequence:
		if root.Kind != yamlv3.SequenceNode {
			return fmt.Errorf("line %d: expected a sequence at top level, got %s", root.Line, nodeKindName(root.Kind))
		}
	case ShapeMapping:
		if root.Kind != yamlv3.MappingNode {
			return fmt.Errorf("line %d: expected a mapping at top level, got %s", root.Line, nodeKindName(root.Kind))
		}
	default:
		return errors.New("unknown shape")
	}
	return nil
}

func nodeKindName(k yamlv3.Kind) string {
	switch k {
	case yamlv3.DocumentNode:
		return "document"
	case yamlv3.SequenceNode:
		return "sequence"
	case yamlv3.MappingNode:
		return "mapping"
	case yamlv3.ScalarNode:
		return "scalar"
	case yamlv3.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
