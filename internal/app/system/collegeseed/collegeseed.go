// Package collegeseed reads college directory seed files.
//
// A seed file is YAML, either a bare list of names or a document with a
// "colleges" key:
//
//	colleges:
//	  - IIT Delhi
//	  - NIT Trichy
package collegeseed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type document struct {
	Colleges []string `yaml:"colleges"`
}

// Parse reads names from r. Blank entries are dropped and surrounding
// whitespace trimmed; order is preserved.
func Parse(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse college seed: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var names []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&names); err != nil {
			return nil, fmt.Errorf("parse college seed: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse college seed: %w", err)
		}
		names = doc.Colleges
	default:
		return nil, errors.New("parse college seed: expected a list or a colleges: key")
	}

	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// Load parses the seed file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
