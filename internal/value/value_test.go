package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null==null", Null, Null, true},
		{"bool true==true", Bool(true), Bool(true), true},
		{"bool true!=false", Bool(true), Bool(false), false},
		{"number 1==1.0", Number(1), Number(1.0), true},
		{"string equal", String("x"), String("x"), true},
		{"kind mismatch", String("1"), Number(1), false},
		{"array equal", Array([]Value{Number(1), String("a")}), Array([]Value{Number(1), String("a")}), true},
		{"array length mismatch", Array([]Value{Number(1)}), Array([]Value{Number(1), Number(2)}), false},
		{"object equal", Object(map[string]Value{"a": Number(1)}), Object(map[string]Value{"a": Number(1)}), true},
		{"object field mismatch", Object(map[string]Value{"a": Number(1)}), Object(map[string]Value{"a": Number(2)}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestValue_Get_OutOfRangeAndMissingKey(t *testing.T) {
	arr := Array([]Value{String("a"), String("b")})
	_, ok := arr.Get(IndexSegment(5))
	assert.False(t, ok)

	obj := Object(map[string]Value{"x": Number(1)})
	_, ok = obj.Get(KeySegment("missing"))
	assert.False(t, ok)

	// type mismatch: indexing an object, keying an array
	_, ok = obj.Get(IndexSegment(0))
	assert.False(t, ok)
	_, ok = arr.Get(KeySegment("x"))
	assert.False(t, ok)
}

func TestValue_Path(t *testing.T) {
	v := Object(map[string]Value{
		"a": Array([]Value{Object(map[string]Value{"b": String("hit")})}),
	})
	got, ok := v.Path([]Segment{KeySegment("a"), IndexSegment(0), KeySegment("b")})
	require.True(t, ok)
	s, _ := got.AsString()
	assert.Equal(t, "hit", s)

	_, ok = v.Path([]Segment{KeySegment("a"), IndexSegment(9)})
	assert.False(t, ok)
}

func TestValue_JSONRoundTrip(t *testing.T) {
	raw := []byte(`{"a":1,"b":[true,null,"s"],"c":{"d":2.5}}`)
	var v Value
	require.NoError(t, json.Unmarshal(raw, &v))

	out, err := json.Marshal(v)
	require.NoError(t, err)

	var reparsed Value
	require.NoError(t, json.Unmarshal(out, &reparsed))
	assert.True(t, v.Equal(reparsed))
}

func TestValue_Stringify(t *testing.T) {
	assert.Equal(t, "hello", String("hello").Stringify())
	assert.Equal(t, "42", Number(42).Stringify())
	assert.Equal(t, "true", Bool(true).Stringify())
	assert.Equal(t, "null", Null.Stringify())
}
