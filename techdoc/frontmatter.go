// Package techdoc reads documentation artifacts: their YAML frontmatter,
// where they live in a project, and the component edge graph they declare.
package techdoc

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shihwesley/chronicler/blast"
)

const fence = "---"

// Frontmatter is the metadata block at the top of a doc artifact.
type Frontmatter struct {
	ComponentID string `yaml:"component_id"`
	Version     string `yaml:"version"`
	Layer       string `yaml:"layer"`
	Owner       string `yaml:"owner_team"`
	Edges       Edges  `yaml:"edges"`
}

// Edges decodes a YAML edge list leniently: a non-sequence value yields no
// edges, and items that are not mappings are dropped.
type Edges []blast.Edge

func (e *Edges) UnmarshalYAML(value *yaml.Node) error {
	*e = nil
	if value.Kind != yaml.SequenceNode {
		return nil
	}
	for _, item := range value.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		var edge struct {
			Target string `yaml:"target"`
			Type   string `yaml:"type"`
		}
		if err := item.Decode(&edge); err != nil {
			continue
		}
		*e = append(*e, blast.Edge{Target: edge.Target, Type: edge.Type})
	}
	return nil
}

// Split separates a leading "---" fenced block from the body. ok is false
// when the content has no complete frontmatter block, in which case body is
// the whole input.
func Split(content []byte) (header, body []byte, ok bool) {
	first, rest, found := cutLine(content)
	if !found || !isFence(first) {
		return nil, content, false
	}
	start := len(content) - len(rest)
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if isFence(line) {
			end := len(content) - len(rest)
			return content[start:end], next, true
		}
		rest = next
	}
	return nil, content, false
}

// Parse decodes the frontmatter of content. Content without a frontmatter
// block yields a zero Frontmatter and no error; malformed YAML is an error.
func Parse(content []byte) (Frontmatter, []byte, error) {
	header, body, ok := Split(content)
	if !ok {
		return Frontmatter{}, content, nil
	}
	var fm Frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Frontmatter{}, body, fmt.Errorf("parsing frontmatter: %w", err)
	}
	return fm, body, nil
}

func isFence(line []byte) bool {
	return bytes.Equal(bytes.TrimRight(line, " \t\r"), []byte(fence))
}

func cutLine(b []byte) (line, rest []byte, found bool) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, nil, false
}
