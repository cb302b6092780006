package executor

import (
	"strconv"
	"strings"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

const (
	forEachTargetKey      = "target"
	forEachActionsKey     = "actions"
	forEachItemKey        = "item"
	forEachActionIDKey    = "id"
	forEachActionPayload  = "payload"
)

// ActionPublisher is the narrow slice of EventBus that ForEachExecutor
// needs: republish a derived action without waiting for it to complete.
// Defined locally (rather than importing the dispatcher package) so
// executor has no dependency on dispatch; any EventBus implementation
// satisfies this by construction.
type ActionPublisher interface {
	Publish(action event.Action)
}

// ForEachExecutor expands a templated "target" array into one action per
// item, per action template listed under "actions", republishing each
// derived action onto the same bus rather than recursing — a trampoline
// that keeps nested ForEach chains from growing the call stack (§9).
//
// It is stateless: the same instance may run concurrently across the
// executor worker pool.
type ForEachExecutor struct {
	bus ActionPublisher
}

// NewForEachExecutor constructs a ForEachExecutor publishing derived
// actions onto bus.
func NewForEachExecutor(bus ActionPublisher) *ForEachExecutor {
	return &ForEachExecutor{bus: bus}
}

func (e *ForEachExecutor) Execute(action *event.Action) error {
	obj, ok := action.Payload.AsObject()
	if !ok {
		return &MissingArgumentError{Message: "ForEachExecutor: action payload is not an object"}
	}

	targetVal, ok := obj[forEachTargetKey]
	items, isArr := targetVal.AsArray()
	if !ok || !isArr {
		return &MissingArgumentError{Message: "ForEachExecutor: no [" + forEachTargetKey + "] key found in payload, or its value is not an array"}
	}

	actionsVal, ok := obj[forEachActionsKey]
	templates, isArr := actionsVal.AsArray()
	if !ok || !isArr {
		return &MissingArgumentError{Message: "ForEachExecutor: no [" + forEachActionsKey + "] key found in payload"}
	}

	for _, tmplValue := range templates {
		tmpl, err := parseActionTemplate(tmplValue)
		if err != nil {
			continue
		}
		for _, item := range items {
			derived := resolveForEachAction(tmpl, item, action.TraceID)
			e.bus.Publish(derived)
		}
	}
	return nil
}

type actionTemplate struct {
	id      string
	payload map[string]value.Value
}

func parseActionTemplate(v value.Value) (actionTemplate, error) {
	obj, ok := v.AsObject()
	if !ok {
		return actionTemplate{}, &MissingArgumentError{Message: "ForEachExecutor: action template is not an object"}
	}
	idVal, ok := obj[forEachActionIDKey]
	id, isStr := idVal.AsString()
	if !ok || !isStr {
		return actionTemplate{}, &MissingArgumentError{Message: "ForEachExecutor: action template missing [id]"}
	}
	payloadVal, ok := obj[forEachActionPayload]
	payload, isObj := payloadVal.AsObject()
	if !ok || !isObj {
		return actionTemplate{}, &MissingArgumentError{Message: "ForEachExecutor: action template missing [payload]"}
	}
	return actionTemplate{id: id, payload: payload}, nil
}

// resolveForEachAction recursively resolves every "${item...}" placeholder
// in the template's payload against this iteration's item, mirroring the
// original's resolve_action/resolve_payload walk. A derived action is
// published straight onto the bus and never passes back through
// matcher.Compile/Process, so this is the only place its placeholders get
// resolved at all.
func resolveForEachAction(tmpl actionTemplate, item value.Value, traceID string) event.Action {
	fields := make(map[string]value.Value, len(tmpl.payload))
	for k, v := range tmpl.payload {
		fields[k] = resolveItemPlaceholders(v, item)
	}
	return event.Action{
		ID:      tmpl.id,
		Payload: value.Object(fields),
		TraceID: traceID,
	}
}

// resolveItemPlaceholders walks v, resolving "${item...}" templates found
// in any String leaf against item and recursing into Array/Object
// children. Every other Value kind passes through unchanged.
func resolveItemPlaceholders(v value.Value, item value.Value) value.Value {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return resolveItemTemplate(s, item)
	case value.KindArray:
		arr, _ := v.AsArray()
		resolved := make([]value.Value, len(arr))
		for i, elem := range arr {
			resolved[i] = resolveItemPlaceholders(elem, item)
		}
		return value.Array(resolved)
	case value.KindObject:
		obj, _ := v.AsObject()
		resolved := make(map[string]value.Value, len(obj))
		for k, elem := range obj {
			resolved[k] = resolveItemPlaceholders(elem, item)
		}
		return value.Object(resolved)
	default:
		return v
	}
}

// itemTemplatePart is one piece of a split "${item...}" template: either
// literal text, or an "item"-rooted path to resolve against the
// per-iteration item.
type itemTemplatePart struct {
	literal string
	path    []value.Segment
	isExpr  bool
	rooted  bool // false if the expression's root isn't "item" (left unresolved)
}

// resolveItemTemplate splits s the same way internal/accessor splits a
// "${...}" template, but resolves each expression as an "item" root path
// evaluated against item rather than against an event. A single bare
// expression preserves item's resolved type (e.g. "${item[0]}" against a
// number item yields a Number); a template mixing literal text with one or
// more expressions stringifies each resolved piece and concatenates them,
// matching internal/accessor's Interpolated behavior. In a mixed template,
// a part whose root isn't "item", or whose path doesn't resolve,
// contributes nothing; a single bare expression of that kind is returned
// as the original string, unchanged.
func resolveItemTemplate(s string, item value.Value) value.Value {
	if !strings.Contains(s, "${") {
		return value.String(s)
	}

	parts, ok := splitItemTemplate(s)
	if !ok {
		return value.String(s)
	}

	if len(parts) == 1 && parts[0].isExpr {
		p := parts[0]
		if !p.rooted {
			return value.String(s)
		}
		if resolved, ok := item.Path(p.path); ok {
			return resolved
		}
		return value.String(s)
	}

	var sb strings.Builder
	for _, p := range parts {
		if !p.isExpr {
			sb.WriteString(p.literal)
			continue
		}
		if !p.rooted {
			continue
		}
		if resolved, ok := item.Path(p.path); ok {
			sb.WriteString(resolved.Stringify())
		}
	}
	return value.String(sb.String())
}

// splitItemTemplate scans s for "${...}" occurrences and parses each
// expression as an "item"-rooted path ("item", "item.key", "item[0]",
// "item[\"key\"]", any combination), the same bracket grammar
// internal/accessor uses. ok is false only on malformed "${" nesting.
func splitItemTemplate(s string) ([]itemTemplatePart, bool) {
	var parts []itemTemplatePart
	i := 0
	n := len(s)
	for i < n {
		idx := strings.Index(s[i:], "${")
		if idx == -1 {
			parts = append(parts, itemTemplatePart{literal: s[i:]})
			break
		}
		if idx > 0 {
			parts = append(parts, itemTemplatePart{literal: s[i : i+idx]})
		}
		start := i + idx + 2
		j := start
		depth := 1
		var quote byte
		closed := false
		for ; j < n; j++ {
			c := s[j]
			if quote != 0 {
				if c == quote && (j == 0 || s[j-1] != '\\') {
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
			return nil, false
		}
		path, rooted := parseItemPath(s[start:j])
		parts = append(parts, itemTemplatePart{path: path, isExpr: true, rooted: rooted})
		i = j + 1
	}
	if len(parts) == 0 {
		parts = append(parts, itemTemplatePart{})
	}
	return parts, true
}

// parseItemPath parses expr as "item" followed by any number of ".key" or
// "[index]"/"[\"key\"]" segments. rooted is false if expr's root isn't
// literally "item" or the expression is malformed.
func parseItemPath(expr string) (path []value.Segment, rooted bool) {
	if !strings.HasPrefix(expr, forEachItemKey) {
		return nil, false
	}
	i := len(forEachItemKey)
	n := len(expr)
	if i < n && isItemIdentChar(expr[i]) {
		return nil, false // e.g. "itemize", not "item"
	}

	for i < n {
		switch expr[i] {
		case '.':
			i++
			start := i
			for i < n && isItemIdentChar(expr[i]) {
				i++
			}
			if i == start {
				return nil, false
			}
			path = append(path, value.KeySegment(expr[start:i]))
		case '[':
			i++
			if i >= n {
				return nil, false
			}
			if expr[i] == '"' || expr[i] == '\'' {
				quote := expr[i]
				i++
				start := i
				for i < n && expr[i] != quote {
					i++
				}
				if i >= n {
					return nil, false
				}
				key := expr[start:i]
				i++
				if i >= n || expr[i] != ']' {
					return nil, false
				}
				i++
				path = append(path, value.KeySegment(key))
			} else {
				start := i
				for i < n && expr[i] != ']' {
					i++
				}
				if i >= n {
					return nil, false
				}
				idx, err := strconv.Atoi(strings.TrimSpace(expr[start:i]))
				if err != nil || idx < 0 {
					return nil, false
				}
				i++
				path = append(path, value.IndexSegment(idx))
			}
		default:
			return nil, false
		}
	}
	return path, true
}

func isItemIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
