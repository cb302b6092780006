package matcherconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML_PreservesFilterNodeOrder(t *testing.T) {
	doc := []byte(`
type: filter
name: root
filter: null
nodes:
  zeta:
    type: ruleset
    name: zeta
    rules: []
  alpha:
    type: ruleset
    name: alpha
    rules: []
`)
	n, err := ParseYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, KindFilter, n.Kind)
	assert.Equal(t, []string{"zeta", "alpha"}, n.NodeOrder)
}

func TestParseYAML_DecodesRuleConstraintAndActions(t *testing.T) {
	doc := []byte(`
type: ruleset
name: root
rules:
  - name: r1
    active: true
    continue: false
    constraint:
      WHERE:
        type: equal
        first: 1
        second: 1
      WITH: {}
    actions:
      - id: archive
        payload:
          event: "${event}"
`)
	n, err := ParseYAML(doc)
	require.NoError(t, err)
	require.Len(t, n.Rules, 1)
	assert.Equal(t, "r1", n.Rules[0].Name)
	assert.False(t, n.Rules[0].DoContinue)
	require.Len(t, n.Rules[0].Actions, 1)
	assert.Equal(t, "archive", n.Rules[0].Actions[0].ID)
}

func TestParseYAML_RejectsEmptyDocument(t *testing.T) {
	_, err := ParseYAML([]byte(""))
	assert.Error(t, err)
}
