package matcherconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a root MatcherConfig node from a YAML document with
// the same §6.3 shape as ParseJSON, for check-config file ergonomics
// (§4.15). It converts the document to JSON node-by-node rather than
// through a plain map, since a map would discard the "nodes"/"WITH" key
// order that §4.4 requires filter children and extractors to evaluate
// in.
func ParseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("matcherconfig: invalid yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("matcherconfig: empty yaml document")
	}

	var buf bytes.Buffer
	if err := yamlNodeToJSON(doc.Content[0], &buf); err != nil {
		return nil, fmt.Errorf("matcherconfig: invalid yaml: %w", err)
	}
	return ParseJSON(buf.Bytes())
}

// yamlNodeToJSON writes n's JSON encoding to buf, preserving mapping key
// order (yaml.Node.Content interleaves key/value pairs for a
// MappingNode) instead of routing through an unordered Go map.
func yamlNodeToJSON(n *yaml.Node, buf *bytes.Buffer) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return yamlNodeToJSON(n.Content[0], buf)

	case yaml.AliasNode:
		return yamlNodeToJSON(n.Alias, buf)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := yamlNodeToJSON(n.Content[i+1], buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := yamlNodeToJSON(item, buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return err
		}
		scalarJSON, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(scalarJSON)
		return nil

	default:
		return fmt.Errorf("unsupported yaml node kind %v", n.Kind)
	}
}
