package executor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

func TestArchiveExecutor_WritesToResolvedPath(t *testing.T) {
	dir := t.TempDir()
	ex := NewArchiveExecutor(ArchiveConfig{
		BasePath:    dir,
		DefaultPath: "default.log",
		Paths:       map[string]string{"one": "one/${key_one}/${key_two}.log"},
	})

	action := &event.Action{
		Payload: value.Object(map[string]value.Value{
			"archive_type": value.String("one"),
			"event":        value.Object(map[string]value.Value{"type": value.String("trap")}),
			"key_one":      value.String("first"),
			"key_two":      value.String("second"),
		}),
	}

	require.NoError(t, ex.Execute(action))

	expectedPath := filepath.Join(dir, "one", "first", "second.log")
	data, err := os.ReadFile(expectedPath)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "trap", decoded["type"])
}

func TestArchiveExecutor_UnknownTypeFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	ex := NewArchiveExecutor(ArchiveConfig{
		BasePath:    dir,
		DefaultPath: "fallback.log",
		Paths:       map[string]string{},
	})

	action := &event.Action{
		Payload: value.Object(map[string]value.Value{
			"archive_type": value.String("unknown"),
			"event":        value.Null,
		}),
	}

	require.NoError(t, ex.Execute(action))
	_, err := os.Stat(filepath.Join(dir, "fallback.log"))
	require.NoError(t, err)
}

func TestArchiveExecutor_MissingArchiveTypeIsError(t *testing.T) {
	ex := NewArchiveExecutor(ArchiveConfig{BasePath: t.TempDir(), DefaultPath: "d.log"})
	err := ex.Execute(&event.Action{Payload: value.EmptyObject()})
	require.Error(t, err)
	var missing *MissingArgumentError
	assert.ErrorAs(t, err, &missing)
}

type fakeBus struct {
	published []event.Action
}

func (b *fakeBus) Publish(a event.Action) { b.published = append(b.published, a) }

func TestForEachExecutor_ExpandsTargetAcrossActions(t *testing.T) {
	bus := &fakeBus{}
	ex := NewForEachExecutor(bus)

	action := &event.Action{
		TraceID: "trace-1",
		Payload: value.Object(map[string]value.Value{
			"target": value.Array([]value.Value{value.String("a"), value.String("b")}),
			"actions": value.Array([]value.Value{
				value.Object(map[string]value.Value{
					"id": value.String("notify"),
					"payload": value.Object(map[string]value.Value{
						"item": value.String("${item}"),
					}),
				}),
			}),
		}),
	}

	require.NoError(t, ex.Execute(action))
	require.Len(t, bus.published, 2)
	assert.Equal(t, "notify", bus.published[0].ID)
	assert.Equal(t, "trace-1", bus.published[0].TraceID)
	item0, _ := bus.published[0].Payload.AsObject()
	s, _ := item0["item"].AsString()
	assert.Equal(t, "a", s)
}

func TestForEachExecutor_MissingTargetIsError(t *testing.T) {
	ex := NewForEachExecutor(&fakeBus{})
	err := ex.Execute(&event.Action{Payload: value.EmptyObject()})
	require.Error(t, err)
	var missing *MissingArgumentError
	assert.ErrorAs(t, err, &missing)
}

func TestForEachExecutor_ResolvesInterpolatedPlaceholders(t *testing.T) {
	bus := &fakeBus{}
	ex := NewForEachExecutor(bus)

	action := &event.Action{
		Payload: value.Object(map[string]value.Value{
			"target": value.Array([]value.Value{value.String("first_item"), value.String("second_item")}),
			"actions": value.Array([]value.Value{
				value.Object(map[string]value.Value{
					"id": value.String("id_two"),
					"payload": value.Object(map[string]value.Value{
						"item_with_interpolation": value.String("a ${item} bb <${item}>"),
					}),
				}),
			}),
		}),
	}

	require.NoError(t, ex.Execute(action))
	require.Len(t, bus.published, 2)

	p0, _ := bus.published[0].Payload.AsObject()
	s0, _ := p0["item_with_interpolation"].AsString()
	assert.Equal(t, "a first_item bb <first_item>", s0)

	p1, _ := bus.published[1].Payload.AsObject()
	s1, _ := p1["item_with_interpolation"].AsString()
	assert.Equal(t, "a second_item bb <second_item>", s1)
}

func TestForEachExecutor_ResolvesIndexedPlaceholdersPreservingType(t *testing.T) {
	bus := &fakeBus{}
	ex := NewForEachExecutor(bus)

	action := &event.Action{
		Payload: value.Object(map[string]value.Value{
			"target": value.Array([]value.Value{
				value.Array([]value.Value{value.String("first"), value.String("second")}),
			}),
			"actions": value.Array([]value.Value{
				value.Object(map[string]value.Value{
					"id": value.String("id_one"),
					"payload": value.Object(map[string]value.Value{
						"value": value.String("${item[0]} + ${item[1]}"),
						"first": value.String("${item[0]}"),
					}),
				}),
			}),
		}),
	}

	require.NoError(t, ex.Execute(action))
	require.Len(t, bus.published, 1)

	p, _ := bus.published[0].Payload.AsObject()
	combined, _ := p["value"].AsString()
	assert.Equal(t, "first + second", combined)

	// A single bare "${item[...]}" expression preserves the resolved
	// value's type rather than stringifying it.
	assert.Equal(t, value.String("first"), p["first"])
}

func TestForEachExecutor_ResolvesPlaceholdersInsideNestedMapsAndArrays(t *testing.T) {
	bus := &fakeBus{}
	ex := NewForEachExecutor(bus)

	action := &event.Action{
		Payload: value.Object(map[string]value.Value{
			"target": value.Array([]value.Value{
				value.Array([]value.Value{value.String("first"), value.String("second")}),
			}),
			"actions": value.Array([]value.Value{
				value.Object(map[string]value.Value{
					"id": value.String("id_one"),
					"payload": value.Object(map[string]value.Value{
						"inner_map": value.Object(map[string]value.Value{
							"value": value.String("${item[0]}"),
						}),
						"inner_array": value.Array([]value.Value{
							value.String("${item[0]}"),
							value.String("${item[1]}"),
						}),
					}),
				}),
			}),
		}),
	}

	require.NoError(t, ex.Execute(action))
	require.Len(t, bus.published, 1)

	p, _ := bus.published[0].Payload.AsObject()

	innerMap, _ := p["inner_map"].AsObject()
	assert.Equal(t, value.String("first"), innerMap["value"])

	innerArray, _ := p["inner_array"].AsArray()
	require.Len(t, innerArray, 2)
	assert.Equal(t, value.String("first"), innerArray[0])
	assert.Equal(t, value.String("second"), innerArray[1])
}

func TestForEachExecutor_LeavesNonItemPlaceholdersUntouched(t *testing.T) {
	bus := &fakeBus{}
	ex := NewForEachExecutor(bus)

	action := &event.Action{
		Payload: value.Object(map[string]value.Value{
			"target": value.Array([]value.Value{value.String("x")}),
			"actions": value.Array([]value.Value{
				value.Object(map[string]value.Value{
					"id": value.String("id_one"),
					"payload": value.Object(map[string]value.Value{
						"unrelated": value.String("${event.type}"),
					}),
				}),
			}),
		}),
	}

	require.NoError(t, ex.Execute(action))
	require.Len(t, bus.published, 1)
	p, _ := bus.published[0].Payload.AsObject()
	s, _ := p["unrelated"].AsString()
	assert.Equal(t, "${event.type}", s)
}
