package matcherconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tornadohq/tornado/internal/extractor"
	"github.com/tornadohq/tornado/internal/operator"
)

// ParseJSON decodes a root MatcherConfig node from its §6.3 wire shape.
func ParseJSON(data []byte) (*Node, error) {
	var n Node
	if err := n.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &n, nil
}

type rawNode struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Filter json.RawMessage `json:"filter"`
	Nodes  json.RawMessage `json:"nodes"`
	Rules  []json.RawMessage `json:"rules"`
}

// UnmarshalJSON decodes a node discriminated by its "type" field into
// either a Filter or Ruleset Node, per §6.3.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Name = raw.Name

	switch raw.Type {
	case "filter":
		n.Kind = KindFilter
		if len(raw.Filter) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Filter), []byte("null")) {
			var spec operator.Spec
			if err := json.Unmarshal(raw.Filter, &spec); err != nil {
				return fmt.Errorf("matcherconfig: filter %q: %w", n.Name, err)
			}
			n.Filter = &spec
		}
		keys, rawValues, err := decodeOrderedObject(raw.Nodes)
		if err != nil {
			return fmt.Errorf("matcherconfig: filter %q nodes: %w", n.Name, err)
		}
		n.NodeOrder = keys
		n.Nodes = make(map[string]*Node, len(keys))
		for i, key := range keys {
			var child Node
			if err := child.UnmarshalJSON(rawValues[i]); err != nil {
				return fmt.Errorf("matcherconfig: filter %q child %q: %w", n.Name, key, err)
			}
			n.Nodes[key] = &child
		}
		return nil

	case "ruleset":
		n.Kind = KindRuleset
		n.Rules = make([]Rule, len(raw.Rules))
		for i, rm := range raw.Rules {
			if err := n.Rules[i].UnmarshalJSON(rm); err != nil {
				return fmt.Errorf("matcherconfig: ruleset %q rule[%d]: %w", n.Name, i, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("matcherconfig: unknown node type %q", raw.Type)
	}
}

// MarshalJSON re-encodes a Node to its §6.3 wire shape, preserving
// Filter child order via NodeOrder so a round-tripped config is
// byte-stable modulo whitespace. Used by configstore persistence and
// the upgrade-rules CLI command's canonical re-emit.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	switch n.Kind {
	case KindFilter:
		fmt.Fprintf(&buf, "%q:%q,", "type", "filter")
		fmt.Fprintf(&buf, "%q:%q,", "name", n.Name)
		buf.WriteString(`"filter":`)
		if n.Filter == nil {
			buf.WriteString("null")
		} else {
			b, err := json.Marshal(n.Filter)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteString(`,"nodes":{`)
		for i, key := range n.NodeOrder {
			if i > 0 {
				buf.WriteByte(',')
			}
			childJSON, err := json.Marshal(n.Nodes[key])
			if err != nil {
				return nil, err
			}
			keyJSON, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			buf.Write(childJSON)
		}
		buf.WriteString("}")

	case KindRuleset:
		fmt.Fprintf(&buf, "%q:%q,", "type", "ruleset")
		fmt.Fprintf(&buf, "%q:%q,", "name", n.Name)
		buf.WriteString(`"rules":[`)
		for i, rule := range n.Rules {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := json.Marshal(&rule)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteString("]")
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type rawRule struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Active      *bool             `json:"active"`
	Continue    *bool             `json:"continue"`
	Constraint  json.RawMessage   `json:"constraint"`
	Actions     []rawActionTemplate `json:"actions"`
}

type rawActionTemplate struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes a Rule per §6.3's Rule shape. Active/Continue
// default to true when omitted, matching a hand-authored config where
// most rules are active and most continue chains aren't special-cased.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Name = raw.Name
	r.Description = raw.Description
	r.Active = raw.Active == nil || *raw.Active
	r.DoContinue = raw.Continue == nil || *raw.Continue

	if len(raw.Constraint) > 0 {
		if err := r.Constraint.UnmarshalJSON(raw.Constraint); err != nil {
			return fmt.Errorf("rule %q constraint: %w", r.Name, err)
		}
	}

	r.Actions = make([]ActionTemplate, len(raw.Actions))
	for i, a := range raw.Actions {
		r.Actions[i].ID = a.ID
		if len(a.Payload) > 0 {
			if err := json.Unmarshal(a.Payload, &r.Actions[i].Payload); err != nil {
				return fmt.Errorf("rule %q action[%d] payload: %w", r.Name, i, err)
			}
		}
	}
	return nil
}

// MarshalJSON re-encodes a Rule to its §6.3 wire shape.
func (r *Rule) MarshalJSON() ([]byte, error) {
	constraintJSON, err := json.Marshal(&r.Constraint)
	if err != nil {
		return nil, err
	}
	actions := make([]rawActionTemplate, len(r.Actions))
	for i, a := range r.Actions {
		payloadJSON, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, err
		}
		actions[i] = rawActionTemplate{ID: a.ID, Payload: payloadJSON}
	}
	return json.Marshal(struct {
		Name        string              `json:"name"`
		Description string              `json:"description"`
		Active      bool                `json:"active"`
		Continue    bool                `json:"continue"`
		Constraint  json.RawMessage     `json:"constraint"`
		Actions     []rawActionTemplate `json:"actions"`
	}{
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		Continue:    r.DoContinue,
		Constraint:  constraintJSON,
		Actions:     actions,
	})
}

type rawConstraint struct {
	Where json.RawMessage `json:"WHERE"`
	With  json.RawMessage `json:"WITH"`
}

// UnmarshalJSON decodes a Constraint per §6.3, preserving the WITH
// object's key order so extractors run insertion-ordered (§4.4).
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var raw rawConstraint
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.Where) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Where), []byte("null")) {
		var spec operator.Spec
		if err := json.Unmarshal(raw.Where, &spec); err != nil {
			return fmt.Errorf("WHERE: %w", err)
		}
		c.Where = &spec
	}

	keys, rawValues, err := decodeOrderedObject(raw.With)
	if err != nil {
		return fmt.Errorf("WITH: %w", err)
	}
	c.WithOrder = keys
	c.With = make(map[string]extractor.Spec, len(keys))
	for i, key := range keys {
		var spec extractor.Spec
		if err := json.Unmarshal(rawValues[i], &spec); err != nil {
			return fmt.Errorf("WITH[%s]: %w", key, err)
		}
		c.With[key] = spec
	}
	return nil
}

// MarshalJSON re-encodes a Constraint to its §6.3 wire shape, preserving
// WithOrder.
func (c *Constraint) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"WHERE":`)
	if c.Where == nil {
		buf.WriteString("null")
	} else {
		b, err := json.Marshal(c.Where)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString(`,"WITH":{`)
	for i, key := range c.WithOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, _ := json.Marshal(key)
		specJSON, err := json.Marshal(c.With[key])
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(specJSON)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// decodeOrderedObject decodes a JSON object while preserving key order,
// which encoding/json's native map decoding discards. Returns nil, nil,
// nil for an absent/null object.
func decodeOrderedObject(data []byte) ([]string, []json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	var values []json.RawMessage
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, raw)
	}
	return keys, values, nil
}
