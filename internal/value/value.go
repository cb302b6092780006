// Package value implements the tagged-variant Value used throughout the
// matcher: the payload of every Event, the result of every Accessor, and
// the post-interpolation body of every Action are all Values.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a recursive tagged variant mirroring a JSON value: null, bool,
// number, string, array, or object. Values form trees, never cycles; an
// Array or Object owns its children inline.
//
// The zero Value is Null. Values are treated as immutable once built:
// callers must not mutate a Value returned from Payload/Metadata/extracted
// vars in place, since it may be shared across goroutines evaluating the
// same compiled MatcherTree concurrently.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null is the canonical null Value.
var Null = Value{kind: KindNull}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64. Tornado, like JSON, has a single numeric kind.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a slice of Values. The slice is stored by reference; callers
// should not mutate it after passing it to Array.
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// Object wraps a string-keyed map of Values. Keys are unique by
// construction (Go maps); iteration order is not semantic.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, obj: fields} }

// EmptyObject returns a fresh, empty Object value.
func EmptyObject() Value { return Object(map[string]Value{}) }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload and whether v is a Number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload and whether v is a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the element slice and whether v is an Array.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the field map and whether v is an Object.
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Get indexes into an Array (non-negative int index) or Object (string
// key). Out-of-range indices, missing keys, and type mismatches return
// (Null, false) rather than panicking — accessor traversal relies on this
// to implement the "missing key yields None" rule of §4.1.
func (v Value) Get(segment Segment) (Value, bool) {
	if segment.IsIndex {
		if v.kind != KindArray || segment.Index < 0 || segment.Index >= len(v.arr) {
			return Null, false
		}
		return v.arr[segment.Index], true
	}
	if v.kind != KindObject {
		return Null, false
	}
	child, ok := v.obj[segment.Key]
	return child, ok
}

// Segment is one step of a path expression: either an array index or an
// object key.
type Segment struct {
	IsIndex bool
	Index   int
	Key     string
}

func IndexSegment(i int) Segment { return Segment{IsIndex: true, Index: i} }
func KeySegment(k string) Segment { return Segment{Key: k} }

// Path walks a sequence of segments starting at v, stopping (with false)
// the moment any step fails to resolve.
func (v Value) Path(segments []Segment) (Value, bool) {
	cur := v
	for _, seg := range segments {
		next, ok := cur.Get(seg)
		if !ok {
			return Null, false
		}
		cur = next
	}
	return cur, true
}

// Equal implements the structural equality used by Operator::Equal. Two
// Values are equal if they share a Kind and their payloads compare equal;
// Arrays/Objects compare element-wise/field-wise.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := other.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Stringify renders v the way interpolation mode does: strings pass
// through verbatim, everything else is rendered as compact JSON. Used when
// an Accessor's template mixes literal text with one or more expressions.
func (v Value) Stringify() string {
	if s, ok := v.AsString(); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler so a Value round-trips exactly
// like the JSON it was parsed from.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, decoding arbitrary JSON into
// the tagged variant. Object key order from the wire is not preserved
// (map semantics), matching §3's "ordering is not semantic" invariant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = fromInterface(e)
		}
		return Array(items)
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = fromInterface(e)
		}
		return Object(fields)
	default:
		return Null
	}
}

// SortedKeys returns an Object's keys sorted, used wherever a
// deterministic iteration order is needed for display or hashing (not for
// evaluation, where map order is never semantic).
func (v Value) SortedKeys() []string {
	obj, ok := v.AsObject()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
