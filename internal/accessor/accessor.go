// Package accessor implements §4.1 of the matcher spec: compiling a
// template string into an Accessor and evaluating it against an event.
//
// Per the design notes, Accessor is modeled as a single tagged struct
// switched over at evaluation time rather than as a family of interface
// implementations — polymorphism here is a closed, compile-time-known set
// of variants, not an extension point.
package accessor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

// Kind discriminates the variant held by an Accessor.
type Kind int

const (
	KindConstant Kind = iota
	KindEventType
	KindCreatedMs
	KindPayload
	KindMetadata
	KindExtractedVar
	KindInterpolated
)

// Part is one piece of an Interpolated accessor's template: either literal
// text or a nested expression accessor.
type Part struct {
	Literal string
	Expr    *Accessor
}

// Accessor is a compiled `${...}` template, ready to evaluate repeatedly
// against many events without reparsing.
type Accessor struct {
	kind     Kind
	constant value.Value
	path     []value.Segment
	ruleName string
	varName  string
	parts    []Part
	raw      string
}

func (a Accessor) String() string { return a.raw }

// Build compiles an accessor from a raw operand Value. A String operand is
// parsed per the `${...}` template grammar of §4.1; any other Value kind
// (number, bool, null, array, object given directly in a config file) is
// treated as a literal Constant, bypassing template parsing entirely.
func Build(v value.Value) (Accessor, error) {
	s, isString := v.AsString()
	if !isString {
		return Accessor{kind: KindConstant, constant: v, raw: v.Stringify()}, nil
	}
	return BuildFromTemplate(s)
}

// BuildFromTemplate compiles an accessor from a template string, the
// entry point used directly by tests and by callers that already know
// their operand is a string template (e.g. ActionTemplate payload
// strings).
func BuildFromTemplate(template string) (Accessor, error) {
	parts, err := splitTemplate(template)
	if err != nil {
		return Accessor{}, fmt.Errorf("accessor: %s: %w", template, err)
	}

	if len(parts) == 1 && parts[0].isExpr {
		acc, err := parseExpression(parts[0].text)
		if err != nil {
			return Accessor{}, fmt.Errorf("accessor: %s: %w", template, err)
		}
		acc.raw = template
		return acc, nil
	}

	compiled := make([]Part, 0, len(parts))
	for _, p := range parts {
		if !p.isExpr {
			compiled = append(compiled, Part{Literal: p.text})
			continue
		}
		exprAcc, err := parseExpression(p.text)
		if err != nil {
			return Accessor{}, fmt.Errorf("accessor: %s: %w", template, err)
		}
		compiled = append(compiled, Part{Expr: &exprAcc})
	}
	return Accessor{kind: KindInterpolated, parts: compiled, raw: template}, nil
}

// Evaluate resolves the accessor against an event + its rule-scoped
// extracted vars. A None result (false) propagates from path traversal and
// missing extracted vars; it is never an error (§4.1).
func (a Accessor) Evaluate(ie event.InternalEvent) (value.Value, bool) {
	switch a.kind {
	case KindConstant:
		return a.constant, true
	case KindEventType:
		return value.String(ie.Event.Type), true
	case KindCreatedMs:
		return value.Number(float64(ie.Event.CreatedMs)), true
	case KindPayload:
		return ie.Event.Payload.Path(a.path)
	case KindMetadata:
		return ie.Event.Metadata.Path(a.path)
	case KindExtractedVar:
		v, ok := ie.Var(a.ruleName, a.varName)
		if !ok {
			return value.Null, false
		}
		if len(a.path) == 0 {
			return v, true
		}
		return v.Path(a.path)
	case KindInterpolated:
		var sb strings.Builder
		for _, p := range a.parts {
			sb.WriteString(p.Literal)
			if p.Expr != nil {
				if v, ok := p.Expr.Evaluate(ie); ok {
					sb.WriteString(v.Stringify())
				}
			}
		}
		return value.String(sb.String()), true
	default:
		return value.Null, false
	}
}

// --- template splitting: literal text vs. ${...} expressions ---

type rawPart struct {
	text   string
	isExpr bool
}

// splitTemplate scans template for `${...}` occurrences, respecting
// quoted bracket keys inside the expression (so a key like ["a}b"] doesn't
// prematurely close the expression) and nested braces. An unterminated
// `${` is a build-time error per §4.1.
func splitTemplate(template string) ([]rawPart, error) {
	var parts []rawPart
	i := 0
	n := len(template)
	for i < n {
		idx := strings.Index(template[i:], "${")
		if idx == -1 {
			parts = append(parts, rawPart{text: template[i:]})
			break
		}
		if idx > 0 {
			parts = append(parts, rawPart{text: template[i : i+idx]})
		}
		start := i + idx + 2
		j := start
		depth := 1
		var quote byte
		closed := false
		for ; j < n; j++ {
			c := template[j]
			if quote != 0 {
				if c == quote && (j == 0 || template[j-1] != '\\') {
					quote = 0
				}
				continue
			}
			switch c {
			case '"', '\'':
				quote = c
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					closed = true
				}
			}
			if closed {
				break
			}
		}
		if !closed {
			return nil, fmt.Errorf("unbalanced ${ starting at offset %d", i+idx)
		}
		parts = append(parts, rawPart{text: template[start:j], isExpr: true})
		i = j + 1
	}
	if len(parts) == 0 {
		parts = append(parts, rawPart{text: ""})
	}
	return parts, nil
}

// --- expression parsing: root(.segment | [index] | ["key"])* ---

type token struct {
	isIndex bool
	index   int
	key     string
}

func parseExpression(expr string) (Accessor, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return Accessor{}, err
	}
	if len(toks) == 0 {
		return Accessor{}, fmt.Errorf("empty expression")
	}
	if toks[0].isIndex {
		return Accessor{}, fmt.Errorf("expression cannot start with an index")
	}

	switch toks[0].key {
	case "event":
		if len(toks) < 2 || toks[1].isIndex {
			return Accessor{}, fmt.Errorf("event.* root requires a field name")
		}
		switch toks[1].key {
		case "type":
			if len(toks) != 2 {
				return Accessor{}, fmt.Errorf("event.type takes no further path segments")
			}
			return Accessor{kind: KindEventType}, nil
		case "created_ms":
			if len(toks) != 2 {
				return Accessor{}, fmt.Errorf("event.created_ms takes no further path segments")
			}
			return Accessor{kind: KindCreatedMs}, nil
		case "payload":
			return Accessor{kind: KindPayload, path: toSegments(toks[2:])}, nil
		case "metadata":
			return Accessor{kind: KindMetadata, path: toSegments(toks[2:])}, nil
		default:
			return Accessor{}, fmt.Errorf("unknown event root field %q", toks[1].key)
		}
	case "_variables":
		if len(toks) < 3 || toks[1].isIndex || toks[2].isIndex {
			return Accessor{}, fmt.Errorf("_variables root requires <ruleName>.<varName>")
		}
		return Accessor{
			kind:     KindExtractedVar,
			ruleName: toks[1].key,
			varName:  toks[2].key,
			path:     toSegments(toks[3:]),
		}, nil
	default:
		return Accessor{}, fmt.Errorf("unknown accessor root %q", toks[0].key)
	}
}

func toSegments(toks []token) []value.Segment {
	segs := make([]value.Segment, len(toks))
	for i, t := range toks {
		if t.isIndex {
			segs[i] = value.IndexSegment(t.index)
		} else {
			segs[i] = value.KeySegment(t.key)
		}
	}
	return segs
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func tokenize(expr string) ([]token, error) {
	var toks []token
	i := 0
	n := len(expr)

	readIdent := func(start int) (string, int) {
		j := start
		for j < n && isIdentChar(expr[j]) {
			j++
		}
		return expr[start:j], j
	}

	if n == 0 {
		return nil, fmt.Errorf("empty path expression")
	}
	if expr[0] == '.' || expr[0] == '[' {
		return nil, fmt.Errorf("path expression cannot start with %q", expr[0])
	}

	ident, next := readIdent(0)
	if ident == "" {
		return nil, fmt.Errorf("expected identifier at offset 0 in %q", expr)
	}
	toks = append(toks, token{key: ident})
	i = next

	for i < n {
		switch expr[i] {
		case '.':
			i++
			ident, next := readIdent(i)
			if ident == "" {
				return nil, fmt.Errorf("expected identifier after '.' at offset %d in %q", i, expr)
			}
			toks = append(toks, token{key: ident})
			i = next
		case '[':
			i++
			if i >= n {
				return nil, fmt.Errorf("unterminated '[' in %q", expr)
			}
			if expr[i] == '"' || expr[i] == '\'' {
				quote := expr[i]
				i++
				start := i
				for i < n && expr[i] != quote {
					i++
				}
				if i >= n {
					return nil, fmt.Errorf("unterminated quoted key in %q", expr)
				}
				key := expr[start:i]
				i++ // consume closing quote
				if i >= n || expr[i] != ']' {
					return nil, fmt.Errorf("expected ']' after quoted key in %q", expr)
				}
				i++
				toks = append(toks, token{key: key})
			} else {
				start := i
				for i < n && expr[i] != ']' {
					i++
				}
				if i >= n {
					return nil, fmt.Errorf("unterminated '[' in %q", expr)
				}
				idxStr := expr[start:i]
				idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("invalid array index %q in %q", idxStr, expr)
				}
				i++ // consume ']'
				toks = append(toks, token{isIndex: true, index: idx})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d in %q", expr[i], i, expr)
		}
	}
	return toks, nil
}
