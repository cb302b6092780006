package matcher

import (
	"github.com/tornadohq/tornado/internal/accessor"
	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

// compiledValue mirrors value.Value's shape but replaces every string leaf
// with a compiled Accessor, so an ActionTemplate's payload can be resolved
// against an event without re-parsing templates on every dispatch.
type compiledValue struct {
	kind  value.Kind
	lit   value.Value    // used for Null/Bool/Number, which never template
	str   accessor.Accessor // used for String
	arr   []compiledValue
	obj   map[string]compiledValue
}

// compileActionPayload walks a Value recursively, compiling every String
// leaf into an Accessor per §3's "payload... recursive over Arrays and
// Objects" rule.
func compileActionPayload(v value.Value) (compiledValue, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		a, err := accessor.BuildFromTemplate(s)
		if err != nil {
			return compiledValue{}, err
		}
		return compiledValue{kind: value.KindString, str: a}, nil

	case value.KindArray:
		items, _ := v.AsArray()
		out := make([]compiledValue, len(items))
		for i, item := range items {
			c, err := compileActionPayload(item)
			if err != nil {
				return compiledValue{}, err
			}
			out[i] = c
		}
		return compiledValue{kind: value.KindArray, arr: out}, nil

	case value.KindObject:
		fields, _ := v.AsObject()
		out := make(map[string]compiledValue, len(fields))
		for k, field := range fields {
			c, err := compileActionPayload(field)
			if err != nil {
				return compiledValue{}, err
			}
			out[k] = c
		}
		return compiledValue{kind: value.KindObject, obj: out}, nil

	default:
		return compiledValue{kind: v.Kind(), lit: v}, nil
	}
}

// resolve interpolates every compiled accessor against ie, producing the
// concrete Value dispatched as an Action's payload.
func (c compiledValue) resolve(ie event.InternalEvent) value.Value {
	switch c.kind {
	case value.KindString:
		v, ok := c.str.Evaluate(ie)
		if !ok {
			return value.Null
		}
		return v

	case value.KindArray:
		out := make([]value.Value, len(c.arr))
		for i, item := range c.arr {
			out[i] = item.resolve(ie)
		}
		return value.Array(out)

	case value.KindObject:
		out := make(map[string]value.Value, len(c.obj))
		for k, field := range c.obj {
			out[k] = field.resolve(ie)
		}
		return value.Object(out)

	default:
		return c.lit
	}
}

// compiledAction is a Rule's ActionTemplate after compile: a fixed id plus
// a payload ready to resolve per-event.
type compiledAction struct {
	id      string
	payload compiledValue
}

func compileAction(id string, payload value.Value) (compiledAction, error) {
	c, err := compileActionPayload(payload)
	if err != nil {
		return compiledAction{}, err
	}
	return compiledAction{id: id, payload: c}, nil
}

func (a compiledAction) resolve(ie event.InternalEvent) event.Action {
	return event.Action{
		ID:      a.id,
		Payload: a.payload.resolve(ie),
		TraceID: ie.Event.TraceID,
	}
}
