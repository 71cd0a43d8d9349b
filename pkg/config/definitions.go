package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Definition is one named expression in a definition file.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Expression  string `yaml:"expression" json:"expression"`
}

// LoadDefinitions parses a definition file. The file holds one or more YAML
// documents, each either a single definition or a list of them. JSON is
// accepted since it is valid YAML.
func LoadDefinitions(data []byte) ([]Definition, error) {
	var defs []Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for doc := 0; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if len(node.Content) == 0 {
			continue
		}

		root := node.Content[0]
		switch root.Kind {
		case yaml.SequenceNode:
			var list []Definition
			if err := root.Decode(&list); err != nil {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			defs = append(defs, list...)
		case yaml.MappingNode:
			var d Definition
			if err := root.Decode(&d); err != nil {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			defs = append(defs, d)
		default:
			return nil, fmt.Errorf("document %d (line %d): expected a definition or a list of definitions", doc, root.Line)
		}
	}

	seen := make(map[string]bool)
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("definition %d: missing name", i)
		}
		if d.Expression == "" {
			return nil, fmt.Errorf("definition %q: missing expression", d.Name)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("definition %q: duplicate name", d.Name)
		}
		seen[d.Name] = true
	}
	return defs, nil
}
