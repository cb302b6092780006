package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/matcherconfig"
	"github.com/tornadohq/tornado/internal/value"
)

func mustCompile(t *testing.T, raw string) *Tree {
	t.Helper()
	root, err := matcherconfig.ParseJSON([]byte(raw))
	require.NoError(t, err)
	tree, errs := Compile(root)
	require.Empty(t, errs)
	return tree
}

func ieWithEvent(ev event.Event) event.InternalEvent {
	return event.NewInternalEvent(ev)
}

func TestProcess_S1_BasicMatchAndArchiveAction(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "ruleset", "name": "rules",
		"rules": [{
			"name": "r1",
			"constraint": {"WHERE": {"type":"equal","first":"${event.type}","second":"trap"}},
			"actions": [{"id":"archive","payload":{"path":"/a.log","event":"${event.type}"}}]
		}]
	}`)

	ie := ieWithEvent(event.Event{Type: "trap", Payload: value.EmptyObject(), Metadata: value.EmptyObject()})
	pe := tree.Process(ie, false)

	actions := pe.MatchedActions()
	require.Len(t, actions, 1)
	assert.Equal(t, "archive", actions[0].ID)
	obj, ok := actions[0].Payload.AsObject()
	require.True(t, ok)
	path, _ := obj["path"].AsString()
	assert.Equal(t, "/a.log", path)
}

func TestProcess_S2_ExtractorFeedsAction(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "ruleset", "name": "rules",
		"rules": [{
			"name": "r",
			"constraint": {"WITH": {"num": {"from":"${event.payload.msg}","regex":{"pattern":"id=(\\d+)","group_match_idx":1}}}},
			"actions": [{"id":"a","payload":{"id":"${_variables.r.num}"}}]
		}]
	}`)

	ie := ieWithEvent(event.Event{
		Payload:  value.Object(map[string]value.Value{"msg": value.String("x id=42 y")}),
		Metadata: value.EmptyObject(),
	})
	pe := tree.Process(ie, false)

	actions := pe.MatchedActions()
	require.Len(t, actions, 1)
	obj, _ := actions[0].Payload.AsObject()
	id, _ := obj["id"].AsString()
	assert.Equal(t, "42", id)
}

func TestProcess_S3_ExtractorNoMatchAbortsRule(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "ruleset", "name": "rules",
		"rules": [{
			"name": "r",
			"constraint": {"WITH": {"num": {"from":"${event.payload.msg}","regex":{"pattern":"id=(\\d+)","group_match_idx":1}}}},
			"actions": [{"id":"a","payload":{"id":"${_variables.r.num}"}}]
		}]
	}`)

	ie := ieWithEvent(event.Event{
		Payload:  value.Object(map[string]value.Value{"msg": value.String("nothing")}),
		Metadata: value.EmptyObject(),
	})
	pe := tree.Process(ie, false)

	require.Len(t, pe.Root.Rules, 1)
	assert.Equal(t, PartiallyMatched, pe.Root.Rules[0].Status.Kind)
	assert.Equal(t, "num", pe.Root.Rules[0].Status.FailedExtractor)
	assert.Empty(t, pe.MatchedActions())
}

func TestProcess_S4_DoContinueFalseHaltsRuleset(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "ruleset", "name": "rules",
		"rules": [
			{"name":"r1","continue":false,"actions":[{"id":"a1"}]},
			{"name":"r2","actions":[{"id":"a2"}]},
			{"name":"r3","actions":[{"id":"a3"}]}
		]
	}`)

	pe := tree.Process(ieWithEvent(event.Event{Payload: value.EmptyObject(), Metadata: value.EmptyObject()}), false)
	require.Len(t, pe.Root.Rules, 3)
	assert.Equal(t, Matched, pe.Root.Rules[0].Status.Kind)
	assert.Equal(t, NotProcessed, pe.Root.Rules[1].Status.Kind)
	assert.Equal(t, NotProcessed, pe.Root.Rules[2].Status.Kind)
}

func TestProcess_S5_FilterShortCircuitsSubtree(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "filter", "name": "f",
		"filter": {"type":"equal","first":"${event.type}","second":"x"},
		"nodes": {"s": {"type":"ruleset","name":"s","rules":[{"name":"always","actions":[{"id":"a"}]}]}}
	}`)

	pe := tree.Process(ieWithEvent(event.Event{Type: "y", Payload: value.EmptyObject(), Metadata: value.EmptyObject()}), false)
	require.False(t, *pe.Root.FilterMatched)
	require.Len(t, pe.Root.Children, 1)
	sub := pe.Root.Children[0]
	require.Len(t, sub.Rules, 1)
	assert.Equal(t, NotProcessed, sub.Rules[0].Status.Kind)
	assert.Empty(t, pe.MatchedActions())
}

func TestProcess_S7_RegexOperator(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "ruleset", "name": "rules",
		"rules": [{
			"name": "r",
			"constraint": {"WHERE": {"type":"regex","regex":"^foo.*","target":"${event.payload.x}"}},
			"actions": [{"id":"a"}]
		}]
	}`)

	matched := ieWithEvent(event.Event{
		Payload:  value.Object(map[string]value.Value{"x": value.String("foobar")}),
		Metadata: value.EmptyObject(),
	})
	pe := tree.Process(matched, false)
	assert.Equal(t, Matched, pe.Root.Rules[0].Status.Kind)

	notMatched := ieWithEvent(event.Event{
		Payload:  value.Object(map[string]value.Value{"x": value.String("barfoo")}),
		Metadata: value.EmptyObject(),
	})
	pe2 := tree.Process(notMatched, false)
	assert.Equal(t, NotMatched, pe2.Root.Rules[0].Status.Kind)
}

func TestProcess_InactiveRuleIsEquivalentToRemoved(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "ruleset", "name": "rules",
		"rules": [{"name":"r","active":false,"actions":[{"id":"a"}]}]
	}`)
	pe := tree.Process(ieWithEvent(event.Event{Payload: value.EmptyObject(), Metadata: value.EmptyObject()}), false)
	assert.Empty(t, pe.Root.Rules)
}

func TestProcess_IncludeMetadataDoesNotChangeMatchedActions(t *testing.T) {
	tree := mustCompile(t, `{
		"type": "filter", "name": "f", "filter": null,
		"nodes": {"s": {"type":"ruleset","name":"s","rules":[{"name":"r","actions":[{"id":"a"}]}]}}
	}`)
	ev := event.Event{Payload: value.EmptyObject(), Metadata: value.EmptyObject()}

	withTrace := tree.Process(ieWithEvent(ev), true)
	withoutTrace := tree.Process(ieWithEvent(ev), false)
	assert.Equal(t, withTrace.MatchedActions(), withoutTrace.MatchedActions())
}

func TestCompile_NilConfigIsError(t *testing.T) {
	_, errs := Compile(nil)
	assert.NotEmpty(t, errs)
}

func TestCompile_InvalidRegexAggregatesError(t *testing.T) {
	root, err := matcherconfig.ParseJSON([]byte(`{
		"type": "ruleset", "name": "rules",
		"rules": [{"name":"r","constraint":{"WHERE":{"type":"regex","regex":"(unclosed","target":"${event.type}"}}}]
	}`))
	require.NoError(t, err)
	_, errs := Compile(root)
	assert.NotEmpty(t, errs)
}
