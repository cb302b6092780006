package operator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tornadohq/tornado/internal/value"
)

// Spec is the uncompiled, JSON-decodable form of an Operator, matching the
// §6.3 wire shape: a `"type"` discriminator plus per-type fields.
type Spec struct {
	Kind      Kind
	RawType   string
	Operators []Spec  // and / or
	Operand   *Spec   // not
	First     value.Value // equal, notEqual, ge, le, gt, lt
	Second    value.Value
	Text      value.Value // contains, containsIgnoreCase
	Substring value.Value
	Regex     string // regex
	Target    value.Value
}

var typeAliases = map[string]Kind{
	"and":                KindAnd,
	"or":                 KindOr,
	"not":                KindNot,
	"equal":              KindEqual,
	"notequal":           KindNotEqual,
	"ge":                 KindGreaterEqual,
	"greaterequal":       KindGreaterEqual,
	"le":                 KindLessEqual,
	"lessequal":          KindLessEqual,
	"gt":                 KindGreater,
	"greater":            KindGreater,
	"lt":                 KindLess,
	"less":               KindLess,
	"contains":           KindContains,
	"containsignorecase": KindContainsIgnoreCase,
	"regex":              KindRegex,
}

type rawSpec struct {
	Type      string            `json:"type"`
	Operators []json.RawMessage `json:"operators,omitempty"`
	Operator  json.RawMessage   `json:"operator,omitempty"`
	First     json.RawMessage   `json:"first,omitempty"`
	Second    json.RawMessage   `json:"second,omitempty"`
	Text      json.RawMessage   `json:"text,omitempty"`
	Substring json.RawMessage   `json:"substring,omitempty"`
	Regex     string            `json:"regex,omitempty"`
	Target    json.RawMessage   `json:"target,omitempty"`
}

// UnmarshalJSON decodes the §6.3 discriminated Operator shape into a Spec.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw rawSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.RawType = raw.Type
	kind, ok := typeAliases[strings.ToLower(raw.Type)]
	if !ok {
		return &UnknownOperatorError{Type: raw.Type}
	}
	s.Kind = kind

	switch kind {
	case KindAnd, KindOr:
		s.Operators = make([]Spec, len(raw.Operators))
		for i, rm := range raw.Operators {
			if err := json.Unmarshal(rm, &s.Operators[i]); err != nil {
				return err
			}
		}
	case KindNot:
		if len(raw.Operator) == 0 {
			return &ArityMismatchError{Type: raw.Type, Detail: "missing \"operator\" field"}
		}
		var operand Spec
		if err := json.Unmarshal(raw.Operator, &operand); err != nil {
			return err
		}
		s.Operand = &operand
	case KindEqual, KindNotEqual, KindGreaterEqual, KindLessEqual, KindGreater, KindLess:
		if len(raw.First) == 0 || len(raw.Second) == 0 {
			return &ArityMismatchError{Type: raw.Type, Detail: "requires \"first\" and \"second\""}
		}
		if err := json.Unmarshal(raw.First, &s.First); err != nil {
			return err
		}
		if err := json.Unmarshal(raw.Second, &s.Second); err != nil {
			return err
		}
	case KindContains, KindContainsIgnoreCase:
		if len(raw.Text) == 0 || len(raw.Substring) == 0 {
			return &ArityMismatchError{Type: raw.Type, Detail: "requires \"text\" and \"substring\""}
		}
		if err := json.Unmarshal(raw.Text, &s.Text); err != nil {
			return err
		}
		if err := json.Unmarshal(raw.Substring, &s.Substring); err != nil {
			return err
		}
	case KindRegex:
		if raw.Regex == "" || len(raw.Target) == 0 {
			return &ArityMismatchError{Type: raw.Type, Detail: "requires \"regex\" and \"target\""}
		}
		s.Regex = raw.Regex
		if err := json.Unmarshal(raw.Target, &s.Target); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON re-encodes a Spec to the §6.3 wire shape, used by
// `tornado upgrade-rules` to canonicalize a config.
func (s Spec) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"type": s.RawType}
	switch s.Kind {
	case KindAnd, KindOr:
		out["operators"] = s.Operators
	case KindNot:
		out["operator"] = s.Operand
	case KindEqual, KindNotEqual, KindGreaterEqual, KindLessEqual, KindGreater, KindLess:
		out["first"] = s.First
		out["second"] = s.Second
	case KindContains, KindContainsIgnoreCase:
		out["text"] = s.Text
		out["substring"] = s.Substring
	case KindRegex:
		out["regex"] = s.Regex
		out["target"] = s.Target
	}
	return json.Marshal(out)
}

func (s Spec) String() string {
	return fmt.Sprintf("Operator(%s)", s.RawType)
}
