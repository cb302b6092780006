// Package matcher compiles a validated matcherconfig.Node tree into an
// immutable MatcherTree and evaluates events against it, per §4.4.
package matcher

import (
	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

// RuleStatusKind discriminates a rule's outcome within a ProcessedEvent.
type RuleStatusKind int

const (
	// NotProcessed means the rule was never reached, either because an
	// earlier Filter ruled out its subtree or an earlier rule in the
	// same Ruleset matched with do_continue=false.
	NotProcessed RuleStatusKind = iota
	// NotMatched means the rule's where_operator evaluated to false. A
	// rule under a Filter whose operator is false is NotProcessed instead.
	NotMatched
	// PartiallyMatched means the where_operator passed but an extractor
	// failed to produce a value, aborting the rule.
	PartiallyMatched
	// Matched means the rule fully matched and produced actions.
	Matched
)

// NotMatchedReason names why a rule stopped at NotMatched. The evaluator
// only sets ReasonWhere; a false Filter is reported through
// ProcessedNode.FilterMatched, and ReasonFilter is never assigned.
type NotMatchedReason int

const (
	ReasonNone NotMatchedReason = iota
	ReasonFilter
	ReasonWhere
)

// RuleStatus is one rule's outcome, matching §3's ProcessedEvent leaf
// status sum.
type RuleStatus struct {
	Kind RuleStatusKind

	// Reason is set for NotMatched.
	Reason NotMatchedReason

	// FailedExtractor is set for PartiallyMatched.
	FailedExtractor string

	// ExtractedVars and Actions are set for Matched.
	ExtractedVars map[string]value.Value
	Actions       []event.Action
}

// NodeKind mirrors matcherconfig.NodeKind so callers of this package
// don't need to import matcherconfig just to inspect a ProcessedEvent.
type NodeKind int

const (
	NodeFilter NodeKind = iota
	NodeRuleset
)

// ProcessedNode is one node of the ProcessedEvent tree, isomorphic to
// the MatcherConfig tree it was produced from.
type ProcessedNode struct {
	Kind NodeKind
	Name string

	// Filter fields.
	FilterMatched *bool // nil when there was no operator (always descends)
	Children      []*ProcessedNode

	// Ruleset fields.
	Rules []RuleResult

	// Trace is populated only when include_metadata=true (§4.4); it
	// carries a human-readable evaluation trace for previews.
	Trace string
}

// RuleResult pairs a rule's name with its outcome.
type RuleResult struct {
	Name   string
	Status RuleStatus
}

// ProcessedEvent is the root of one event's evaluation result.
type ProcessedEvent struct {
	Root *ProcessedNode
}

// MatchedActions flattens every Matched rule's actions across the whole
// tree, in depth-first traversal order, per §4.6's dispatcher contract.
func (p ProcessedEvent) MatchedActions() []event.Action {
	var out []event.Action
	collectActions(p.Root, &out)
	return out
}

func collectActions(n *ProcessedNode, out *[]event.Action) {
	if n == nil {
		return
	}
	switch n.Kind {
	case NodeFilter:
		for _, child := range n.Children {
			collectActions(child, out)
		}
	case NodeRuleset:
		for _, r := range n.Rules {
			if r.Status.Kind == Matched {
				*out = append(*out, r.Status.Actions...)
			}
		}
	}
}
