// Package matcherconfig implements §3's MatcherConfig tree and its §6.3
// JSON encoding: an immutable configuration of Filter interior nodes and
// Ruleset leaves, validated and compiled by internal/validator and
// internal/matcher respectively.
package matcherconfig

import (
	"github.com/tornadohq/tornado/internal/extractor"
	"github.com/tornadohq/tornado/internal/operator"
	"github.com/tornadohq/tornado/internal/value"
)

// NodeKind discriminates the two MatcherConfig variants.
type NodeKind int

const (
	KindFilter NodeKind = iota
	KindRuleset
)

// Node is a MatcherConfig tree node: either a Filter (interior, gating a
// subtree by an optional operator) or a Ruleset (leaf, an ordered list of
// rules). Nodes map[string]*Node holds a Filter's children; NodeOrder
// preserves the configuration-file order of their keys, since §4.4
// requires children to be evaluated "in the configuration-defined order
// of their keys" — information a plain Go map cannot carry on its own.
type Node struct {
	Kind      NodeKind
	Name      string
	Filter    *operator.Spec
	Nodes     map[string]*Node
	NodeOrder []string

	Rules []Rule
}

// OrderedChildren returns a Filter node's children in configuration
// order. Ruleset nodes have no children and return nil.
func (n *Node) OrderedChildren() []*Node {
	if n.Kind != KindFilter {
		return nil
	}
	out := make([]*Node, 0, len(n.NodeOrder))
	for _, name := range n.NodeOrder {
		out = append(out, n.Nodes[name])
	}
	return out
}

// Rule is one entry of a Ruleset, matching §3's Rule type.
type Rule struct {
	Name        string
	Description string
	Active      bool
	DoContinue  bool
	Constraint  Constraint
	Actions     []ActionTemplate
}

// Constraint is a rule's guard: an optional where-operator plus an
// ordered set of named extractors (§3). WithOrder mirrors Node.NodeOrder:
// extractors run in the configuration file's insertion order so later
// extractors (and the rule's actions) may reference earlier bindings.
type Constraint struct {
	Where     *operator.Spec
	With      map[string]extractor.Spec
	WithOrder []string
}

// OrderedWith returns the constraint's (name, spec) extractor pairs in
// configuration order.
func (c Constraint) OrderedWith() []struct {
	Name string
	Spec extractor.Spec
} {
	out := make([]struct {
		Name string
		Spec extractor.Spec
	}, 0, len(c.WithOrder))
	for _, name := range c.WithOrder {
		out = append(out, struct {
			Name string
			Spec extractor.Spec
		}{Name: name, Spec: c.With[name]})
	}
	return out
}

// ActionTemplate is §3's ActionTemplate: an action id plus a Value payload
// that may contain `${...}` templated strings, compiled and resolved at
// match time by internal/matcher.
type ActionTemplate struct {
	ID      string
	Payload value.Value
}
